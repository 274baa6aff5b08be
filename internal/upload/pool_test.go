package upload_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

func TestUploadPool_UnknownProjectCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.rec.UploadPool(ctx, "Nowhere", "Engineering", upload.Records([]upload.Row{prospectRow("S1", "Alice")}))
	require.Error(t, err)
	assert.Nil(t, res)
	var missing *appErrors.MissingReferenceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Project", missing.Ref)

	pools, err := f.repos.Pools.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, pools)
	prospects, err := f.repos.Prospects.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, prospects)
}

func TestUploadPool_BlankPoolName(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.UploadPool(context.Background(), "Spring", "", nil)
	var invalid *appErrors.ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "pool", invalid.Field)
}

func TestUploadPool_AddsMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.rec.Projects(ctx, []upload.Row{{"name": "Spring"}})
	require.NoError(t, err)

	// S1 exists before the upload and joins the pool as an update.
	_, err = f.rec.Prospects(ctx, []upload.Row{prospectRow("S1", "Alice")})
	require.NoError(t, err)

	res, err := f.rec.UploadPool(ctx, "Spring", "Engineering", upload.Records([]upload.Row{
		prospectRow("S1", "Alice Tan"),
		prospectRow("S2", "Bob"),
		prospectRow("S3", ""),
	}))
	require.NoError(t, err)
	assert.True(t, res.PoolCreated)
	assert.Len(t, res.Prospects.Created, 1)
	assert.Len(t, res.Prospects.Updated, 1)
	assert.Len(t, res.Prospects.Skipped, 1)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Pool.ProspectCount)

	sum := res.Summary()
	assert.Equal(t, upload.ModelPool, sum.Model)
	assert.Equal(t, []string{"Bob (S2)"}, sum.Created)

	// Re-uploading reuses the pool and adds no one twice.
	res, err = f.rec.UploadPool(ctx, "Spring", "Engineering", upload.Records([]upload.Row{
		prospectRow("S2", "Bob"),
		prospectRow("S4", "Dan"),
	}))
	require.NoError(t, err)
	assert.False(t, res.PoolCreated)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 3, res.Pool.ProspectCount)

	pools, err := f.repos.Pools.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pools)
}
