package services

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"gorm.io/gorm"
)

type UserService struct {
	db      *gorm.DB
	follows *FollowService
}

func NewUserService(db *gorm.DB, follows *FollowService) *UserService {
	return &UserService{db: db, follows: follows}
}

func (s *UserService) Get(ctx context.Context, viewer relations.Viewer, id uint) (*dto.UserResponse, error) {
	user, err := s.follows.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.follows.IsSubscribed(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	view := UserView(user, subscribed)
	return &view, nil
}

func (s *UserService) List(ctx context.Context, viewer relations.Viewer, page dto.PageRequest) ([]dto.UserResponse, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, dbErr("user_count", err)
	}

	var users []models.User
	if err := db.Order("id").Limit(page.Limit).Offset(page.Offset()).Find(&users).Error; err != nil {
		return nil, 0, dbErr("user_list", err)
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := s.follows.SubscribedSet(ctx, viewer, ids)
	if err != nil {
		return nil, 0, err
	}

	views := make([]dto.UserResponse, len(users))
	for i := range users {
		views[i] = UserView(&users[i], subscribed[users[i].ID])
	}
	return views, total, nil
}

func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, dbErr("user_lookup", err)
	}
	return count > 0, nil
}

// PromoteToAdmin grants the admin role to the user with email.
func (s *UserService) PromoteToAdmin(ctx context.Context, email string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("role", models.RoleAdmin)
	if result.Error != nil {
		return dbErr("user_promote", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	slog.Info("user promoted to admin", "email", email)
	return nil
}
