// Package relations computes viewer-relative fields and checks follow
// preconditions. It is storage-agnostic: lookups are injected.
package relations

import (
	"context"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
)

var (
	ErrSelfFollow       = apperr.Conflict("self_follow", "you cannot follow yourself")
	ErrAlreadyFollowing = apperr.Conflict("already_following", "you are already following this author")
	ErrNotFollowing     = apperr.Conflict("not_following", "you are not following this author")
	ErrInvalidLimit     = apperr.Validation("recipes_limit", "invalid", "recipes_limit must be a positive integer")
)

// Viewer identifies who issued the request. The zero value is anonymous.
type Viewer struct {
	ID uint
}

func Anonymous() Viewer { return Viewer{} }

func (v Viewer) Authenticated() bool { return v.ID != 0 }

// FollowLookup answers whether followerID follows authorID.
type FollowLookup interface {
	IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error)
}

// FollowLookupFunc adapts a function to FollowLookup.
type FollowLookupFunc func(ctx context.Context, followerID, authorID uint) (bool, error)

func (f FollowLookupFunc) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	return f(ctx, followerID, authorID)
}

// IsSubscribed is always false for anonymous viewers; the lookup is not
// consulted in that case.
func IsSubscribed(ctx context.Context, viewer Viewer, targetID uint, lookup FollowLookup) (bool, error) {
	if !viewer.Authenticated() {
		return false, nil
	}
	return lookup.IsFollowing(ctx, viewer.ID, targetID)
}

// CheckFollow validates a follow attempt given whether the edge exists.
func CheckFollow(viewerID, targetID uint, exists bool) error {
	if viewerID == targetID {
		return ErrSelfFollow
	}
	if exists {
		return ErrAlreadyFollowing
	}
	return nil
}

// ParseRecipesLimit parses the recipes_limit query value. Empty means no
// limit and is returned as 0.
func ParseRecipesLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, ErrInvalidLimit.WithValue(raw)
	}
	return n, nil
}

// LimitRecipes truncates items to limit when limit is positive.
func LimitRecipes[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}
