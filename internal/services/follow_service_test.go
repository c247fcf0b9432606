package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFollowSelf(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")

	_, err := svc.Follow(context.Background(), relations.Viewer{ID: alice.ID}, alice.ID, 0)
	require.ErrorIs(t, err, relations.ErrSelfFollow)

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Zero(t, count)
}

func TestFollowTwiceKeepsOneEdge(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")
	viewer := relations.Viewer{ID: alice.ID}

	view, err := svc.Follow(ctx, viewer, bob.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, view.ID)
	assert.True(t, view.IsSubscribed)

	_, err = svc.Follow(ctx, viewer, bob.ID, 0)
	require.ErrorIs(t, err, relations.ErrAlreadyFollowing)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	var count int64
	db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", alice.ID, bob.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestFollowLosesInsertRace(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")

	// a concurrent request inserts the same edge after the existence check
	// but before this INSERT runs
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("test:concurrent_follow", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Follow); !ok || raced {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO follows (user_id, author_id, created_at) VALUES (?, ?, ?)", alice.ID, bob.ID, time.Now())
	})
	require.NoError(t, err)

	_, err = svc.Follow(context.Background(), relations.Viewer{ID: alice.ID}, bob.ID, 0)
	require.True(t, raced)
	require.ErrorIs(t, err, relations.ErrAlreadyFollowing)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", alice.ID, bob.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFollowUnknownAuthor(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")

	_, err := svc.Follow(context.Background(), relations.Viewer{ID: alice.ID}, 999, 0)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUnfollow(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")
	viewer := relations.Viewer{ID: alice.ID}

	assert.ErrorIs(t, svc.Unfollow(ctx, viewer, bob.ID), relations.ErrNotFollowing)

	_, err := svc.Follow(ctx, viewer, bob.ID, 0)
	require.NoError(t, err)
	require.NoError(t, svc.Unfollow(ctx, viewer, bob.ID))

	ok, err := svc.IsSubscribed(ctx, viewer, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsSubscribedAnonymous(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")
	require.NoError(t, db.Create(&models.Follow{UserID: alice.ID, AuthorID: bob.ID}).Error)

	ok, err := svc.IsSubscribed(ctx, relations.Anonymous(), bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsSubscribed(ctx, relations.Viewer{ID: alice.ID}, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	set, err := svc.SubscribedSet(ctx, relations.Anonymous(), []uint{bob.ID})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestSubscriptionsRecipesLimit(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")
	carol := testutil.CreateUser(t, db, "carol@example.com", "carol", "pw")
	for i := 1; i <= 5; i++ {
		testutil.CreateRecipe(t, db, bob, fmt.Sprintf("Recipe %d", i))
	}
	viewer := relations.Viewer{ID: alice.ID}
	_, err := svc.Follow(ctx, viewer, bob.ID, 0)
	require.NoError(t, err)
	_, err = svc.Follow(ctx, viewer, carol.ID, 0)
	require.NoError(t, err)

	page := dto.NewPageRequest(1, 10, 6)
	subs, total, err := svc.Subscriptions(ctx, viewer, page, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, subs, 2)

	assert.Equal(t, bob.ID, subs[0].ID)
	assert.True(t, subs[0].IsSubscribed)
	require.Len(t, subs[0].Recipes, 2)
	assert.Equal(t, int64(5), subs[0].RecipesCount)
	// newest first
	assert.Equal(t, "Recipe 5", subs[0].Recipes[0].Name)

	assert.Equal(t, carol.ID, subs[1].ID)
	assert.Empty(t, subs[1].Recipes)
	assert.NotNil(t, subs[1].Recipes)
	assert.Zero(t, subs[1].RecipesCount)

	all, _, err := svc.Subscriptions(ctx, viewer, page, 0)
	require.NoError(t, err)
	assert.Len(t, all[0].Recipes, 5)
}

func TestAuthorView(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewFollowService(db)
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")
	testutil.CreateRecipe(t, db, bob, "Pie")
	testutil.CreateRecipe(t, db, bob, "Stew")

	view, err := svc.AuthorView(context.Background(), relations.Anonymous(), bob.ID, 1)
	require.NoError(t, err)
	assert.False(t, view.IsSubscribed)
	assert.Len(t, view.Recipes, 1)
	assert.Equal(t, int64(2), view.RecipesCount)
}
