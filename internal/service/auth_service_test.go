package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
	"github.com/unclebandit/phonathon-backend/internal/seed"
	"github.com/unclebandit/phonathon-backend/internal/service"
	"github.com/unclebandit/phonathon-backend/internal/testutil"
)

// newAuth returns an AuthService over a seeded database and a caller
// "alexa" with password "secret".
func newAuth(t *testing.T) (*service.AuthService, *repository.Repositories, *model.User) {
	t.Helper()
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	_, err := seed.NewSeeder(uow, nil).Apply(ctx, "adminpass")
	require.NoError(t, err)

	repos := testutil.NewRepos(database)
	u := &model.User{Username: "alexa", Name: "Alex Ang", IsActive: true, DateJoined: time.Now()}
	require.NoError(t, u.SetPassword("secret"))
	require.NoError(t, repos.Users.Create(ctx, u))

	return service.NewAuthService(database, uow, time.Hour, nil), repos, u
}

func TestLogin(t *testing.T) {
	auth, repos, _ := newAuth(t)
	ctx := context.Background()

	u, sess, err := auth.Login(ctx, "alexa", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alexa", u.Username)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	stored, err := repos.Users.GetByNaturalKey(ctx, "alexa")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)

	got, err := auth.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, auth.Logout(ctx, sess.Token))
	_, err = auth.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
}

func TestLogin_Rejected(t *testing.T) {
	auth, repos, u := newAuth(t)
	ctx := context.Background()

	_, _, err := auth.Login(ctx, "alexa", "wrong")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	u.IsActive = false
	require.NoError(t, repos.Users.Update(ctx, u))
	_, _, err = auth.Login(ctx, "alexa", "secret")
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthenticate_Expired(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()

	_, sess, err := auth.Login(ctx, "alexa", "secret")
	require.NoError(t, err)

	auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)

	_, err = auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
}

func TestPurgeSessions(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()
	_, _, err := auth.Login(ctx, "alexa", "secret")
	require.NoError(t, err)

	n, err := auth.PurgeSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = auth.PurgeSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStaffFollowsGroups(t *testing.T) {
	auth, _, u := newAuth(t)
	ctx := context.Background()

	got, err := auth.AddToGroup(ctx, u.ID, model.GroupCallers)
	require.NoError(t, err)
	assert.False(t, got.IsStaff)

	got, err = auth.AddToGroup(ctx, u.ID, model.GroupManagers)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)
	assert.True(t, got.IsManagerAndAbove())

	got, err = auth.RemoveFromGroup(ctx, u.ID, model.GroupManagers)
	require.NoError(t, err)
	assert.False(t, got.IsStaff)
	assert.Equal(t, []string{model.GroupCallers}, got.Groups)

	got, err = auth.AddToGroup(ctx, u.ID, model.GroupSupervisors)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)
	assert.False(t, got.IsManagerAndAbove())

	_, err = auth.AddToGroup(ctx, u.ID, "Wizards")
	var missing *appErrors.MissingReferenceError
	assert.True(t, errors.As(err, &missing))
}
