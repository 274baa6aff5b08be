package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/phonathon-backend/internal/seed"
	"github.com/unclebandit/phonathon-backend/internal/testutil"
)

func TestLoad(t *testing.T) {
	data, err := seed.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Managers", "Supervisors", "Callers"}, data.Groups)
	require.Len(t, data.ResultCodes, 13)

	var incomplete []string
	for _, rc := range data.ResultCodes {
		if !rc.IsComplete {
			incomplete = append(incomplete, rc.ResultCode)
		}
	}
	assert.Equal(t, []string{"No Answer", "Call Back"}, incomplete)
	assert.Equal(t, "admin", data.Superuser.Username)
}

func TestApply(t *testing.T) {
	database := testutil.NewTestDB(t)
	repos := testutil.NewRepos(database)
	s := seed.NewSeeder(testutil.NewTestUoW(database), nil)
	ctx := context.Background()

	rep, err := s.Apply(ctx, "changeme")
	require.NoError(t, err)
	assert.Equal(t, &seed.Report{Groups: 3, ResultCodes: 13, AdminCreated: true}, rep)

	complete, err := repos.ResultCodes.CountComplete(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 11, complete)
	incomplete, err := repos.ResultCodes.CountComplete(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, incomplete)

	admin, err := repos.Users.GetByNaturalKey(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.CheckPassword("changeme"))
	assert.True(t, admin.IsManagerAndAbove())

	// A second run inserts nothing and keeps the admin password.
	rep, err = s.Apply(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, &seed.Report{}, rep)
	admin, err = repos.Users.GetByNaturalKey(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.CheckPassword("changeme"))
}

func TestApply_RequiresAdminPassword(t *testing.T) {
	database := testutil.NewTestDB(t)
	s := seed.NewSeeder(testutil.NewTestUoW(database), nil)

	_, err := s.Apply(context.Background(), "")
	require.Error(t, err)

	n, err := testutil.NewRepos(database).Groups.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "the whole seed rolls back")
}

func TestEnsureSuperuser_Reset(t *testing.T) {
	database := testutil.NewTestDB(t)
	repos := testutil.NewRepos(database)
	ctx := context.Background()
	su := seed.Superuser{Username: "root"}

	created, err := seed.EnsureSuperuser(ctx, repos, su, "first", false)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = seed.EnsureSuperuser(ctx, repos, su, "second", true)
	require.NoError(t, err)
	assert.False(t, created)

	u, err := repos.Users.GetByNaturalKey(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", u.Name)
	assert.True(t, u.CheckPassword("second"))
}
