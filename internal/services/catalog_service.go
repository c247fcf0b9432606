package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/filters"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTagExists        = apperr.Validation("slug", "unique", "a tag with that name or slug already exists")
	ErrIngredientExists = apperr.Validation("name", "unique", "this ingredient with that measurement unit already exists")
)

const importBatchSize = 500

// CatalogService serves the read-mostly tag and ingredient catalogs.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) Tags(ctx context.Context) ([]dto.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, dbErr("tag_list", err)
	}
	views := make([]dto.TagResponse, len(tags))
	for i := range tags {
		views[i] = TagView(&tags[i])
	}
	return views, nil
}

func (s *CatalogService) Tag(ctx context.Context, id uint) (*dto.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrTagNotFound
		}
		return nil, dbErr("tag_get", err)
	}
	view := TagView(&tag)
	return &view, nil
}

// Ingredients lists ingredients whose name starts with filter.Name, sorted
// by name.
func (s *CatalogService) Ingredients(ctx context.Context, filter filters.IngredientFilter) ([]dto.IngredientResponse, error) {
	var items []models.Ingredient
	err := s.db.WithContext(ctx).Model(&models.Ingredient{}).
		Scopes(filter.Scope()).
		Order("ingredients.name, ingredients.id").
		Find(&items).Error
	if err != nil {
		return nil, dbErr("ingredient_list", err)
	}
	views := make([]dto.IngredientResponse, len(items))
	for i := range items {
		views[i] = IngredientView(&items[i])
	}
	return views, nil
}

func (s *CatalogService) Ingredient(ctx context.Context, id uint) (*dto.IngredientResponse, error) {
	var item models.Ingredient
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrIngredientNotFound
		}
		return nil, dbErr("ingredient_get", err)
	}
	view := IngredientView(&item)
	return &view, nil
}

func (s *CatalogService) CreateTag(ctx context.Context, req *dto.TagRequest) (*dto.TagResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	tag := models.Tag{
		Name:  strings.TrimSpace(req.Name),
		Color: strings.ToUpper(req.Color),
		Slug:  req.Slug,
	}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrTagExists
		}
		return nil, dbErr("tag_create", err)
	}
	slog.Info("tag created", "tag_id", tag.ID, "slug", tag.Slug)
	view := TagView(&tag)
	return &view, nil
}

func (s *CatalogService) CreateIngredient(ctx context.Context, req *dto.IngredientRequest) (*dto.IngredientResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	item := models.Ingredient{
		Name:            strings.TrimSpace(req.Name),
		MeasurementUnit: strings.TrimSpace(req.MeasurementUnit),
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrIngredientExists
		}
		return nil, dbErr("ingredient_create", err)
	}
	view := IngredientView(&item)
	return &view, nil
}

// ImportIngredients bulk-inserts items, skipping invalid entries and ones
// that already exist. It returns how many rows were inserted.
func (s *CatalogService) ImportIngredients(ctx context.Context, items []dto.IngredientRequest) (int64, error) {
	rows := make([]models.Ingredient, 0, len(items))
	for i := range items {
		if err := validation.Struct(&items[i]); err != nil {
			slog.Warn("skipping invalid ingredient", "index", i, "error", err)
			continue
		}
		rows = append(rows, models.Ingredient{
			Name:            strings.TrimSpace(items[i].Name),
			MeasurementUnit: strings.TrimSpace(items[i].MeasurementUnit),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, importBatchSize)
	if result.Error != nil {
		return 0, dbErr("ingredient_import", result.Error)
	}
	slog.Info("ingredients imported", "inserted", result.RowsAffected, "received", len(items))
	return result.RowsAffected, nil
}

// ImportTags inserts tags that do not exist yet by slug or name.
func (s *CatalogService) ImportTags(ctx context.Context, items []dto.TagRequest) (int64, error) {
	rows := make([]models.Tag, 0, len(items))
	for i := range items {
		if err := validation.Struct(&items[i]); err != nil {
			slog.Warn("skipping invalid tag", "index", i, "error", err)
			continue
		}
		rows = append(rows, models.Tag{
			Name:  strings.TrimSpace(items[i].Name),
			Color: strings.ToUpper(items[i].Color),
			Slug:  items[i].Slug,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if result.Error != nil {
		return 0, dbErr("tag_import", result.Error)
	}
	return result.RowsAffected, nil
}
