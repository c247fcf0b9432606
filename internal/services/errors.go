package services

import (
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/metrics"
)

var (
	ErrUserNotFound       = apperr.NotFound("user_not_found", "user not found")
	ErrRecipeNotFound     = apperr.NotFound("recipe_not_found", "recipe not found")
	ErrTagNotFound        = apperr.NotFound("tag_not_found", "tag not found")
	ErrIngredientNotFound = apperr.NotFound("ingredient_not_found", "ingredient not found")
)

// dbErr counts and wraps a persistence failure.
func dbErr(op string, err error) error {
	metrics.RecordDBError(op)
	return apperr.Infrastructure(op, err)
}
