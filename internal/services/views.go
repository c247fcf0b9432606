package services

import (
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
)

func UserView(u *models.User, subscribed bool) dto.UserResponse {
	return dto.UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func ShortRecipe(r *models.Recipe) dto.RecipeShortResponse {
	return dto.RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func TagView(t *models.Tag) dto.TagResponse {
	return dto.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func IngredientView(i *models.Ingredient) dto.IngredientResponse {
	return dto.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// RecipeView expects r with Author, Tags and Ingredients.Ingredient loaded.
func RecipeView(r *models.Recipe, favorited, inCart, subscribed bool) dto.RecipeResponse {
	tags := make([]dto.TagResponse, len(r.Tags))
	for i := range r.Tags {
		tags[i] = TagView(&r.Tags[i])
	}
	ingredients := make([]dto.RecipeIngredientResponse, len(r.Ingredients))
	for i, ri := range r.Ingredients {
		ingredients[i] = dto.RecipeIngredientResponse{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		}
	}
	return dto.RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           UserView(&r.Author, subscribed),
		Ingredients:      ingredients,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}
