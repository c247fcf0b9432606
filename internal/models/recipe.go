package models

import "time"

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null;size:200;uniqueIndex" json:"name"`
	Color string `gorm:"not null;size:7" json:"color"`
	Slug  string `gorm:"not null;size:200;uniqueIndex" json:"slug"`
}

type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"not null;size:200;uniqueIndex:idx_ingredients_name_unit,priority:1" json:"name"`
	MeasurementUnit string `gorm:"not null;size:200;uniqueIndex:idx_ingredients_name_unit,priority:2" json:"measurement_unit"`
}

type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"-"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Name        string             `gorm:"not null;size:200" json:"name"`
	Image       string             `gorm:"type:text;not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null" json:"cooking_time"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"-"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time          `gorm:"index" json:"-"`
}

// RecipeIngredient is the amount of one ingredient in one recipe.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient,priority:1" json:"-"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient,priority:2;index" json:"-"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID" json:"-"`
	Amount       int        `gorm:"not null" json:"amount"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_user_recipe,priority:1"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorites_user_recipe,priority:2;index"`
	CreatedAt time.Time
}

type ShoppingCart struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_shopping_carts_user_recipe,priority:1"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_shopping_carts_user_recipe,priority:2;index"`
	CreatedAt time.Time
}
