package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/passwords"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMissingCredentials = apperr.Validation("", "missing_fields", "email and password are required")
	ErrInvalidCredentials = apperr.Authorization("authorization", "unable to log in with provided credentials")
	ErrEmailTaken         = apperr.Validation("email", "unique", "a user with that email already exists")
	ErrUsernameTaken      = apperr.Validation("username", "unique", "a user with that username already exists")
)

type AuthService struct {
	db        *gorm.DB
	cfg       *config.Config
	hasher    *passwords.Hasher
	policy    *passwords.Policy
	dummyHash string
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	s := &AuthService{
		db:     db,
		cfg:    cfg,
		hasher: passwords.NewHasher(cfg.BcryptCost),
		policy: passwords.NewPolicy(cfg.PasswordMinLength),
	}
	// compared against when the email is unknown, so both paths cost a bcrypt run
	s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	return s
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisteredUserResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	attrs := passwords.UserAttributes{Email: req.Email, Username: req.Username, FirstName: req.FirstName, LastName: req.LastName}
	if err := s.policy.Validate("password", req.Password, attrs); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, dbErr("user_lookup", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	if err := db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, dbErr("user_lookup", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  hash,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken.WithMessage("a user with that email or username already exists")
		}
		return nil, dbErr("user_create", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return &dto.RegisteredUserResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// Authenticate returns the user for email/password or ErrInvalidCredentials
// without revealing which part was wrong.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if err != nil {
		if !database.IsNotFound(err) {
			return nil, dbErr("user_lookup", err)
		}
		s.hasher.Matches(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Matches(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AuthService) IssueToken(ctx context.Context, req *dto.TokenLoginRequest) (*dto.TokenResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		metrics.RecordAuthEvent("login", "missing_fields")
		return nil, ErrMissingCredentials
	}

	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		metrics.RecordAuthEvent("login", apperr.From(err).Code)
		return nil, err
	}

	token, err := s.generateAccessToken(ctx, user)
	if err != nil {
		return nil, err
	}
	metrics.RecordAuthEvent("login", "ok")
	return &dto.TokenResponse{AuthToken: token}, nil
}

// Logout revokes the token identified by jti.
func (s *AuthService) Logout(ctx context.Context, jti string) error {
	err := s.db.WithContext(ctx).Model(&models.AuthToken{}).
		Where("jti = ?", jti).
		Update("revoked", true).Error
	if err != nil {
		return dbErr("token_revoke", err)
	}
	metrics.RecordAuthEvent("logout", "ok")
	return nil
}

// TokenActive reports whether jti was issued here, is not revoked and has
// not expired.
func (s *AuthService) TokenActive(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AuthToken{}).
		Where("jti = ? AND revoked = ? AND expires_at > ?", jti, false, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, dbErr("token_lookup", err)
	}
	return count > 0, nil
}

// ChangePassword re-authenticates userID with the current password, checks
// the new one against the policy and stores its hash. Nothing is written
// unless every check passes.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req *dto.SetPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if database.IsNotFound(err) {
			return ErrUserNotFound
		}
		return dbErr("user_get", err)
	}

	if !s.hasher.Matches(user.Password, req.CurrentPassword) {
		metrics.RecordAuthEvent("set_password", ErrInvalidCredentials.Code)
		return ErrInvalidCredentials
	}

	attrs := passwords.UserAttributes{Email: user.Email, Username: user.Username, FirstName: user.FirstName, LastName: user.LastName}
	if err := s.policy.Validate("new_password", req.NewPassword, attrs); err != nil {
		metrics.RecordAuthEvent("set_password", "weak_password")
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password", hash).Error; err != nil {
		return dbErr("user_update", err)
	}

	metrics.RecordAuthEvent("set_password", "ok")
	slog.Info("password changed", "user_id", user.ID)
	return nil
}

func (s *AuthService) generateAccessToken(ctx context.Context, user *models.User) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.JWTAccessExpiry)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"email": user.Email,
		"jti":   jti,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	record := models.AuthToken{
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", dbErr("token_create", err)
	}
	return signed, nil
}
