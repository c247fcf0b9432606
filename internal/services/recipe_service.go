package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/filters"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/validation"
	"gorm.io/gorm"
)

var (
	ErrNotRecipeAuthor = apperr.Forbidden("not_author", "only the author can change this recipe")
	ErrAlreadyAdded    = apperr.Conflict("already_added", "recipe is already added")
	ErrNotAdded        = apperr.Conflict("not_added", "recipe was not added")
)

type RecipeService struct {
	db      *gorm.DB
	follows *FollowService
}

func NewRecipeService(db *gorm.DB, follows *FollowService) *RecipeService {
	return &RecipeService{db: db, follows: follows}
}

// CleanCriteria validates a raw recipe query. Tag slugs must exist and the
// author must be an existing user.
func (s *RecipeService) CleanCriteria(ctx context.Context, raw filters.RawRecipeQuery) (filters.RecipeCriteria, error) {
	var crit filters.RecipeCriteria
	db := s.db.WithContext(ctx)

	if len(raw.Tags) > 0 {
		var slugs []string
		if err := db.Model(&models.Tag{}).Pluck("slug", &slugs).Error; err != nil {
			return crit, dbErr("tag_slugs", err)
		}
		tags, err := filters.TagsField{Choices: slugs}.Clean(raw.Tags)
		if err != nil {
			return crit, err
		}
		crit.Tags = tags
	}

	authorID, err := filters.ParseAuthor(raw.Author)
	if err != nil {
		return crit, err
	}
	if authorID != nil {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", *authorID).Count(&count).Error; err != nil {
			return crit, dbErr("user_lookup", err)
		}
		if count == 0 {
			return crit, apperr.InvalidChoice("author", strings.TrimSpace(raw.Author))
		}
		crit.AuthorID = authorID
	}

	crit.IsFavorited = filters.ParseTriState(raw.IsFavorited)
	crit.IsInShoppingCart = filters.ParseTriState(raw.IsInShoppingCart)
	return crit, nil
}

// List returns one page of recipes matching crit, newest first.
func (s *RecipeService) List(ctx context.Context, viewer relations.Viewer, crit filters.RecipeCriteria, page dto.PageRequest) ([]dto.RecipeResponse, int64, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Recipe{}).Scopes(crit.Scopes(viewer)...)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, dbErr("recipe_count", err)
	}

	var recipes []models.Recipe
	err := base().Scopes(preloadRecipe).
		Order("recipes.created_at DESC, recipes.id DESC").
		Limit(page.Limit).Offset(page.Offset()).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, dbErr("recipe_list", err)
	}
	metrics.RecordRecipeQuery(activeFilters(crit)...)

	views, err := s.recipeViews(ctx, viewer, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *RecipeService) Get(ctx context.Context, viewer relations.Viewer, id uint) (*dto.RecipeResponse, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).Scopes(preloadRecipe).First(&recipe, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, dbErr("recipe_get", err)
	}
	views, err := s.recipeViews(ctx, viewer, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *RecipeService) Create(ctx context.Context, viewer relations.Viewer, req *dto.RecipeRequest) (*dto.RecipeResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Image == "" {
		return nil, apperr.Required("image")
	}

	recipe := models.Recipe{
		AuthorID:    viewer.ID,
		Name:        strings.TrimSpace(req.Name),
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := resolveTags(tx, req.Tags)
		if err != nil {
			return err
		}
		if err := resolveIngredients(tx, req.Ingredients); err != nil {
			return err
		}
		if err := tx.Omit("Tags", "Ingredients", "Author").Create(&recipe).Error; err != nil {
			return dbErr("recipe_create", err)
		}
		return replaceComposition(tx, &recipe, tags, req.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("recipe created", "recipe_id", recipe.ID, "user_id", viewer.ID)
	return s.Get(ctx, viewer, recipe.ID)
}

// Update replaces the recipe's fields, tags and ingredients. An empty image
// keeps the current one.
func (s *RecipeService) Update(ctx context.Context, viewer relations.Viewer, id uint, req *dto.RecipeRequest) (*dto.RecipeResponse, error) {
	recipe, err := s.ownRecipe(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":         strings.TrimSpace(req.Name),
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}
	if req.Image != "" {
		updates["image"] = req.Image
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := resolveTags(tx, req.Tags)
		if err != nil {
			return err
		}
		if err := resolveIngredients(tx, req.Ingredients); err != nil {
			return err
		}
		if err := tx.Model(recipe).Updates(updates).Error; err != nil {
			return dbErr("recipe_update", err)
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return dbErr("recipe_update", err)
		}
		return replaceComposition(tx, recipe, tags, req.Ingredients)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, viewer, recipe.ID)
}

func (s *RecipeService) Delete(ctx context.Context, viewer relations.Viewer, id uint) error {
	recipe, err := s.ownRecipe(ctx, viewer, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		for _, dependent := range []interface{}{&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCart{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		return dbErr("recipe_delete", err)
	}
	slog.Info("recipe deleted", "recipe_id", recipe.ID, "user_id", viewer.ID)
	return nil
}

func (s *RecipeService) AddFavorite(ctx context.Context, viewer relations.Viewer, recipeID uint) (*dto.RecipeShortResponse, error) {
	return s.addEntry(ctx, recipeID, &models.Favorite{UserID: viewer.ID, RecipeID: recipeID})
}

func (s *RecipeService) RemoveFavorite(ctx context.Context, viewer relations.Viewer, recipeID uint) error {
	return s.removeEntry(ctx, viewer, recipeID, &models.Favorite{})
}

func (s *RecipeService) AddToCart(ctx context.Context, viewer relations.Viewer, recipeID uint) (*dto.RecipeShortResponse, error) {
	return s.addEntry(ctx, recipeID, &models.ShoppingCart{UserID: viewer.ID, RecipeID: recipeID})
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, viewer relations.Viewer, recipeID uint) error {
	return s.removeEntry(ctx, viewer, recipeID, &models.ShoppingCart{})
}

// ShoppingList sums ingredient amounts over every recipe in the viewer's
// cart, one line per ingredient and unit, sorted by name.
func (s *RecipeService) ShoppingList(ctx context.Context, viewer relations.Viewer) ([]dto.ShoppingListItem, error) {
	var items []dto.ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", viewer.ID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, dbErr("shopping_list", err)
	}
	if items == nil {
		items = []dto.ShoppingListItem{}
	}
	return items, nil
}

// FormatShoppingList renders items as the downloadable plain-text list.
func FormatShoppingList(items []dto.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString("Shopping list\n\n")
	if len(items) == 0 {
		b.WriteString("Your shopping cart is empty.\n")
		return b.String()
	}
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s (%s): %d\n", i+1, item.Name, item.MeasurementUnit, item.Amount)
	}
	return b.String()
}

func (s *RecipeService) loadRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, dbErr("recipe_get", err)
	}
	return &recipe, nil
}

func (s *RecipeService) ownRecipe(ctx context.Context, viewer relations.Viewer, id uint) (*models.Recipe, error) {
	recipe, err := s.loadRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != viewer.ID {
		return nil, ErrNotRecipeAuthor
	}
	return recipe, nil
}

// addEntry inserts a favorite or cart row. entry carries the user and
// recipe ids.
func (s *RecipeService) addEntry(ctx context.Context, recipeID uint, entry interface{}) (*dto.RecipeShortResponse, error) {
	recipe, err := s.loadRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyAdded
		}
		return nil, dbErr("membership_create", err)
	}
	short := ShortRecipe(recipe)
	return &short, nil
}

func (s *RecipeService) removeEntry(ctx context.Context, viewer relations.Viewer, recipeID uint, model interface{}) error {
	if _, err := s.loadRecipe(ctx, recipeID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", viewer.ID, recipeID).
		Delete(model)
	if result.Error != nil {
		return dbErr("membership_delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotAdded
	}
	return nil
}

// recipeViews enriches recipes with the viewer's favorite, cart and
// subscription flags using one query per flag.
func (s *RecipeService) recipeViews(ctx context.Context, viewer relations.Viewer, recipes []models.Recipe) ([]dto.RecipeResponse, error) {
	views := make([]dto.RecipeResponse, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	ids := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, err := s.membershipSet(ctx, viewer, &models.Favorite{}, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := s.membershipSet(ctx, viewer, &models.ShoppingCart{}, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.follows.SubscribedSet(ctx, viewer, authorIDs)
	if err != nil {
		return nil, err
	}

	for i := range recipes {
		r := &recipes[i]
		views[i] = RecipeView(r, favorited[r.ID], inCart[r.ID], subscribed[r.AuthorID])
	}
	return views, nil
}

func (s *RecipeService) membershipSet(ctx context.Context, viewer relations.Viewer, model interface{}, recipeIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if !viewer.Authenticated() {
		return set, nil
	}
	var ids []uint
	err := s.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id IN ?", viewer.ID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, dbErr("membership_lookup", err)
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}

func resolveTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, dbErr("tag_lookup", err)
	}
	if missing, ok := firstMissing(ids, tags, func(t models.Tag) uint { return t.ID }); ok {
		return nil, apperr.InvalidChoice("tags", strconv.FormatUint(uint64(missing), 10))
	}
	return tags, nil
}

func resolveIngredients(tx *gorm.DB, items []dto.IngredientAmount) error {
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	var found []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return dbErr("ingredient_lookup", err)
	}
	if missing, ok := firstMissing(ids, found, func(i models.Ingredient) uint { return i.ID }); ok {
		return apperr.InvalidChoice("ingredients", strconv.FormatUint(uint64(missing), 10))
	}
	return nil
}

func firstMissing[T any](want []uint, got []T, id func(T) uint) (uint, bool) {
	have := make(map[uint]bool, len(got))
	for _, g := range got {
		have[id(g)] = true
	}
	for _, w := range want {
		if !have[w] {
			return w, true
		}
	}
	return 0, false
}

func replaceComposition(tx *gorm.DB, recipe *models.Recipe, tags []models.Tag, items []dto.IngredientAmount) error {
	if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
		return dbErr("recipe_tags", err)
	}
	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: item.ID, Amount: item.Amount}
	}
	if err := tx.Omit("Ingredient").Create(&rows).Error; err != nil {
		return dbErr("recipe_ingredients", err)
	}
	return nil
}

func activeFilters(crit filters.RecipeCriteria) []string {
	var names []string
	if len(crit.Tags) > 0 {
		names = append(names, "tags")
	}
	if crit.AuthorID != nil {
		names = append(names, "author")
	}
	if crit.IsFavorited != nil {
		names = append(names, "is_favorited")
	}
	if crit.IsInShoppingCart != nil {
		names = append(names, "is_in_shopping_cart")
	}
	return names
}
