package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"appx/internal/models"
	"appx/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Secret123"

func TestUserService_Register(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, RegisterInput{Name: " Ann ", Email: "Ann@Example.com", Password: strongPassword})
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.NotEqual(t, strongPassword, user.PasswordHash)

	pref, err := f.users.Settings(ctx, NewActor(user.ID))
	require.NoError(t, err)
	assert.True(t, pref.NotificationsEnabled, "new accounts receive notifications")

	_, err = f.users.Register(ctx, RegisterInput{Name: "Other", Email: "ann@example.com", Password: strongPassword})
	assertAppCode(t, err, models.CodeConflict)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "x@example.com", Password: strongPassword}},
		{"bad email", RegisterInput{Name: "X", Email: "not-an-email", Password: strongPassword}},
		{"weak password", RegisterInput{Name: "X", Email: "x@example.com", Password: "short"}},
		{"password without digit", RegisterInput{Name: "X", Email: "x@example.com", Password: "NoDigitsHere"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Register(ctx, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.users.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: strongPassword})
	require.NoError(t, err)

	user, err := f.users.Authenticate(ctx, "ANN@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = f.users.Authenticate(ctx, "ann@example.com", "Wrong1234")
	assertAppCode(t, err, models.CodeUnauthorized)

	_, err = f.users.Authenticate(ctx, "nobody@example.com", strongPassword)
	assertAppCode(t, err, models.CodeUnauthorized)
}

func TestUserService_GetProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	ann := testutil.CreateUser(t, f.db, "Ann", "ann@example.com")
	bob := testutil.CreateUser(t, f.db, "Bob", "bob@example.com")
	cy := testutil.CreateUser(t, f.db, "Cy", "cy@example.com")

	_, err := f.relationships.Follow(ctx, NewActor(bob.ID), ann.ID)
	require.NoError(t, err)
	_, err = f.relationships.Follow(ctx, NewActor(ann.ID), cy.ID)
	require.NoError(t, err)

	view, err := f.users.GetProfile(ctx, Actor{}, ann.ID)
	require.NoError(t, err)
	profile, ok := view.(*models.UserProfile)
	require.True(t, ok, "got %T", view)
	assert.Equal(t, int64(1), profile.FollowersCount)
	assert.Equal(t, int64(1), profile.FollowingCount)
	assert.False(t, profile.IsBlocked)

	_, err = f.relationships.Block(ctx, NewActor(ann.ID), bob.ID)
	require.NoError(t, err)

	for _, viewer := range []uint{bob.ID, ann.ID} {
		target := ann.ID
		if viewer == ann.ID {
			target = bob.ID
		}
		view, err = f.users.GetProfile(ctx, NewActor(viewer), target)
		require.NoError(t, err)
		reduced, ok := view.(*models.BlockedProfile)
		require.True(t, ok, "got %T", view)
		assert.True(t, reduced.IsBlocked)
		assert.Equal(t, target, reduced.ID)
	}

	view, err = f.users.GetProfile(ctx, NewActor(cy.ID), ann.ID)
	require.NoError(t, err)
	profile = view.(*models.UserProfile)
	assert.Equal(t, int64(0), profile.FollowersCount, "the follow was removed by the block")

	_, err = f.users.GetProfile(ctx, Actor{}, 999)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestUserService_UpdateProfileAndAvatar(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ann := testutil.CreateUser(t, f.db, "Ann", "ann@example.com")

	blank := "   "
	_, err := f.users.UpdateProfile(ctx, NewActor(ann.ID), UpdateProfileInput{Name: &blank})
	assertValidationError(t, err)

	name, bio, loc := "Ann B.", "writes Go", " Lisbon "
	user, err := f.users.UpdateProfile(ctx, NewActor(ann.ID), UpdateProfileInput{Name: &name, Bio: &bio, Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", user.Name)
	assert.Equal(t, "writes Go", user.Bio)
	assert.Equal(t, "Lisbon", user.Location)

	avatar, err := f.users.UpdateAvatar(ctx, NewActor(ann.ID), Upload{Filename: "me.png", Data: testutil.TinyPNG(t, 4, 4)})
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/me.png", avatar)

	var stored models.User
	require.NoError(t, f.db.First(&stored, ann.ID).Error)
	assert.Equal(t, avatar, stored.AvatarURL)
}

func TestUserService_Settings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	orphan := &models.User{Name: "Orphan", Email: "orphan@example.com", PasswordHash: "x"}
	require.NoError(t, f.db.Create(orphan).Error)

	pref, err := f.users.Settings(ctx, NewActor(orphan.ID))
	require.NoError(t, err)
	assert.False(t, pref.NotificationsEnabled)

	_, err = f.users.UpdateSettings(ctx, NewActor(orphan.ID), true)
	require.NoError(t, err)
	pref, err = f.users.Settings(ctx, NewActor(orphan.ID))
	require.NoError(t, err)
	assert.True(t, pref.NotificationsEnabled)
}

func TestUserService_PasswordReset(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: strongPassword})
	require.NoError(t, err)

	require.NoError(t, f.users.RequestPasswordReset(ctx, "unknown@example.com"))
	assert.Empty(t, f.mailer.link("unknown@example.com"))

	require.NoError(t, f.users.RequestPasswordReset(ctx, "ann@example.com"))
	link := f.mailer.link("ann@example.com")
	require.NotEmpty(t, link)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	assert.Len(t, token, 64)

	assertValidationError(t, f.users.ResetPassword(ctx, token, "weak"))
	assertValidationError(t, f.users.ResetPassword(ctx, "bogus", "NewSecret456"))

	require.NoError(t, f.users.ResetPassword(ctx, token, "NewSecret456"))
	_, err = f.users.Authenticate(ctx, "ann@example.com", "NewSecret456")
	require.NoError(t, err)

	assertValidationError(t, f.users.ResetPassword(ctx, token, "Another789"))
}

func TestUserService_PasswordResetExpires(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: strongPassword})
	require.NoError(t, err)
	require.NoError(t, f.users.RequestPasswordReset(ctx, "ann@example.com"))

	parsed, err := url.Parse(f.mailer.link("ann@example.com"))
	require.NoError(t, err)

	f.users.now = func() time.Time { return time.Now().Add(PasswordResetTTL + time.Minute) }
	assertValidationError(t, f.users.ResetPassword(ctx, parsed.Query().Get("token"), "NewSecret456"))
}
