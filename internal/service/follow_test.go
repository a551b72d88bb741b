package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkfeed/backend/internal/models"
)

func TestFollow(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	sub, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, sub.User.ID)
	assert.Zero(t, sub.RecipesCount)

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// Follows are one-directional.
	following, err = svc.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowSelfRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")

	_, err := svc.Follow(context.Background(), alice.ID, alice.ID)
	assert.True(t, errors.Is(err, ErrValidation))

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFollowDuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	_, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Follow(ctx, alice.ID, bob.ID)
	assert.True(t, errors.Is(err, ErrValidation))

	var count int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFollowUnknownAuthor(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")

	_, err := svc.Follow(context.Background(), alice.ID, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUnfollow(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	_, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// Unfollowing someone you do not follow is a validation failure.
	err = svc.Unfollow(ctx, alice.ID, bob.ID)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSubscriptions(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		createRecipe(t, db, bob, "Bob's dish "+string(rune('A'+i)), RecipeInput{})
	}
	createRecipe(t, db, carol, "Carol's dish", RecipeInput{})

	_, err := svc.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Follow(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	subs, err := svc.Subscriptions(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	// Oldest subscription first, recipe counts unaffected by the cap.
	assert.Equal(t, bob.ID, subs[0].User.ID)
	assert.EqualValues(t, 4, subs[0].RecipesCount)
	assert.Len(t, subs[0].Recipes, 2)

	assert.Equal(t, carol.ID, subs[1].User.ID)
	assert.EqualValues(t, 1, subs[1].RecipesCount)
	assert.Len(t, subs[1].Recipes, 1)
}

func TestSubscriptionsEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewFollowService(db)
	alice := createUser(t, db, "alice")

	subs, err := svc.Subscriptions(context.Background(), alice.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
