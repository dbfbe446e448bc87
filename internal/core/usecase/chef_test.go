package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChefService_RegisterChef(t *testing.T) {
	providedID := uuid.New()
	tests := []struct {
		name        string
		args        model.RegisterChefArgs
		expectedErr assert.ErrorAssertionFunc
		assertion   func(t *testing.T, chef *model.Chef)
	}{
		{
			name: "id issued by the identity provider",
			args: model.RegisterChefArgs{ID: providedID, Handle: " ana ", Email: "Ana@Example.com", Name: "Ana"},
			assertion: func(t *testing.T, chef *model.Chef) {
				assert.Equal(t, providedID, chef.ID)
				assert.Equal(t, "ana", chef.Handle)
				assert.Equal(t, "ana@example.com", chef.Email)
			},
		},
		{
			name: "generated id",
			args: model.RegisterChefArgs{Handle: "bob", Email: "bob@example.com", Name: "Bob"},
			assertion: func(t *testing.T, chef *model.Chef) {
				assert.NotEqual(t, uuid.Nil, chef.ID)
			},
		},
		{
			name:        "blank handle",
			args:        model.RegisterChefArgs{Handle: " ", Email: "bob@example.com", Name: "Bob"},
			expectedErr: errorIs(model.ErrValidation),
		},
		{
			name:        "handle with spaces",
			args:        model.RegisterChefArgs{Handle: "bob the chef", Email: "bob@example.com", Name: "Bob"},
			expectedErr: errorIs(model.ErrValidation),
		},
		{
			name:        "malformed email",
			args:        model.RegisterChefArgs{Handle: "bob", Email: "bob", Name: "Bob"},
			expectedErr: errorIs(model.ErrValidation),
		},
		{
			name:        "taken handle",
			args:        model.RegisterChefArgs{Handle: "taken", Email: "new@example.com", Name: "New"},
			expectedErr: errorIs(model.ErrConflict),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			f.chef(t, "taken")

			chef, err := f.chefs.RegisterChef(context.Background(), test.args)
			if test.expectedErr != nil {
				test.expectedErr(t, err)
				return
			}
			require.NoError(t, err)
			test.assertion(t, chef)

			got, err := f.chefs.GetChef(context.Background(), chef.ID)
			require.NoError(t, err)
			assert.Equal(t, chef.Handle, got.Handle)
			byHandle, err := f.chefs.GetChefByHandle(context.Background(), chef.Handle)
			require.NoError(t, err)
			assert.Equal(t, chef.ID, byHandle.ID)
		})
	}
}

func TestSocialService_Follow(t *testing.T) {
	f := newFixture(t)
	ana := f.chef(t, "ana")
	bob := f.chef(t, "bob")
	ctx := context.Background()

	tests := []struct {
		name        string
		args        model.FollowArgs
		expectedErr assert.ErrorAssertionFunc
	}{
		{name: "follow", args: model.FollowArgs{FollowerID: ana.ID, FolloweeID: bob.ID}},
		{name: "already following", args: model.FollowArgs{FollowerID: ana.ID, FolloweeID: bob.ID}, expectedErr: errorIs(model.ErrAlreadyFollowing)},
		{name: "self follow", args: model.FollowArgs{FollowerID: ana.ID, FolloweeID: ana.ID}, expectedErr: errorIs(model.ErrSelfFollow)},
		{name: "unknown followee", args: model.FollowArgs{FollowerID: ana.ID, FolloweeID: uuid.New()}, expectedErr: errorIs(model.ErrNotFound)},
		{name: "unknown follower", args: model.FollowArgs{FollowerID: uuid.New(), FolloweeID: bob.ID}, expectedErr: errorIs(model.ErrNotFound)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := f.social.Follow(ctx, test.args)
			if test.expectedErr != nil {
				test.expectedErr(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	following, err := f.social.ListFollowing(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob.ID}, chefIDs(following))
	followers, err := f.social.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ana.ID}, chefIDs(followers))

	selfFollowing, err := f.social.ListFollowing(ctx, ana.ID)
	require.NoError(t, err)
	assert.NotContains(t, chefIDs(selfFollowing), ana.ID)
}

func TestSocialService_Unfollow(t *testing.T) {
	f := newFixture(t)
	ana := f.chef(t, "ana")
	bob := f.chef(t, "bob")
	ctx := context.Background()
	require.NoError(t, f.social.Follow(ctx, model.FollowArgs{FollowerID: ana.ID, FolloweeID: bob.ID}))

	require.NoError(t, f.social.Unfollow(ctx, model.FollowArgs{FollowerID: ana.ID, FolloweeID: bob.ID}))
	err := f.social.Unfollow(ctx, model.FollowArgs{FollowerID: ana.ID, FolloweeID: bob.ID})
	assert.ErrorIs(t, err, model.ErrNotFollowing)
	err = f.social.Unfollow(ctx, model.FollowArgs{FollowerID: ana.ID, FolloweeID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrNotFound)

	following, err := f.social.ListFollowing(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
	followers, err := f.social.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)

	_, err = f.social.ListFollowers(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func chefIDs(chefs []model.Chef) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(chefs))
	for _, c := range chefs {
		ids = append(ids, c.ID)
	}
	return ids
}
