package services

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"gorm.io/gorm"
)

type FollowService struct {
	db *gorm.DB
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// IsFollowing implements relations.FollowLookup.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Count(&count).Error
	if err != nil {
		return false, dbErr("follow_lookup", err)
	}
	return count > 0, nil
}

func (s *FollowService) IsSubscribed(ctx context.Context, viewer relations.Viewer, targetID uint) (bool, error) {
	return relations.IsSubscribed(ctx, viewer, targetID, s)
}

// SubscribedSet returns which of authorIDs the viewer follows, in one query.
func (s *FollowService) SubscribedSet(ctx context.Context, viewer relations.Viewer, authorIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if !viewer.Authenticated() || len(authorIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id IN ?", viewer.ID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, dbErr("follow_lookup", err)
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Follow creates the edge viewer -> authorID and returns the author as the
// viewer now sees it.
func (s *FollowService) Follow(ctx context.Context, viewer relations.Viewer, authorID uint, recipesLimit int) (*dto.SubscriptionResponse, error) {
	author, err := s.loadUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	exists, err := s.IsFollowing(ctx, viewer.ID, authorID)
	if err != nil {
		return nil, err
	}
	if err := relations.CheckFollow(viewer.ID, authorID, exists); err != nil {
		metrics.RecordFollow("follow", apperr.From(err).Code)
		return nil, err
	}

	edge := models.Follow{UserID: viewer.ID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		if database.IsUniqueViolation(err) {
			// lost a race with a concurrent follow by the same viewer
			metrics.RecordFollow("follow", relations.ErrAlreadyFollowing.Code)
			return nil, relations.ErrAlreadyFollowing
		}
		return nil, dbErr("follow_create", err)
	}
	metrics.RecordFollow("follow", "ok")
	slog.Info("user followed author", "user_id", viewer.ID, "author_id", authorID)

	views, err := s.authorViews(ctx, viewer, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unfollow removes the edge viewer -> authorID. A missing edge is an error.
func (s *FollowService) Unfollow(ctx context.Context, viewer relations.Viewer, authorID uint) error {
	if _, err := s.loadUser(ctx, authorID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", viewer.ID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return dbErr("follow_delete", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.RecordFollow("unfollow", relations.ErrNotFollowing.Code)
		return relations.ErrNotFollowing
	}
	metrics.RecordFollow("unfollow", "ok")
	return nil
}

// Subscriptions lists the authors the viewer follows, each with up to
// recipesLimit recipes (0 = all) and the full recipe count.
func (s *FollowService) Subscriptions(ctx context.Context, viewer relations.Viewer, page dto.PageRequest, recipesLimit int) ([]dto.SubscriptionResponse, int64, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.User{}).
			Joins("JOIN follows ON follows.author_id = users.id").
			Where("follows.user_id = ?", viewer.ID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, dbErr("subscriptions_count", err)
	}

	var authors []models.User
	err := base().Order("users.id").Limit(page.Limit).Offset(page.Offset()).Find(&authors).Error
	if err != nil {
		return nil, 0, dbErr("subscriptions_list", err)
	}

	views, err := s.authorViews(ctx, viewer, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *FollowService) loadUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, dbErr("user_get", err)
	}
	return &user, nil
}

// authorViews enriches authors with is_subscribed, their newest recipes
// (truncated to recipesLimit) and recipes_count using three queries total.
func (s *FollowService) authorViews(ctx context.Context, viewer relations.Viewer, authors []models.User, recipesLimit int) ([]dto.SubscriptionResponse, error) {
	if len(authors) == 0 {
		return []dto.SubscriptionResponse{}, nil
	}
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	subscribed, err := s.SubscribedSet(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}

	var recipes []models.Recipe
	err = s.db.WithContext(ctx).
		Where("author_id IN ?", ids).
		Order("created_at DESC, id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, dbErr("author_recipes", err)
	}
	byAuthor := make(map[uint][]dto.RecipeShortResponse, len(ids))
	for _, r := range recipes {
		byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], ShortRecipe(&r))
	}

	views := make([]dto.SubscriptionResponse, len(authors))
	for i := range authors {
		a := &authors[i]
		all := byAuthor[a.ID]
		shown := relations.LimitRecipes(all, recipesLimit)
		if shown == nil {
			shown = []dto.RecipeShortResponse{}
		}
		views[i] = dto.SubscriptionResponse{
			UserResponse: UserView(a, subscribed[a.ID]),
			Recipes:      shown,
			RecipesCount: int64(len(all)),
		}
	}
	return views, nil
}

// AuthorView returns authorID with its recipes as the viewer sees it.
func (s *FollowService) AuthorView(ctx context.Context, viewer relations.Viewer, authorID uint, recipesLimit int) (*dto.SubscriptionResponse, error) {
	author, err := s.loadUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	views, err := s.authorViews(ctx, viewer, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
