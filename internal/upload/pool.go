package upload

import (
	"context"

	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

// ModelPool is the summary name used for pool uploads.
const ModelPool = "Pool"

// PoolResult is what a pool upload did.
type PoolResult struct {
	Pool        *model.Pool
	PoolCreated bool
	Prospects   *Result[*model.Prospect]
	// Added counts prospects that joined the pool in this upload.
	Added int
}

func (p *PoolResult) Summary() *Summary {
	if p == nil {
		return &Summary{Model: ModelPool}
	}
	return summarize(ModelPool, p.Prospects)
}

// UploadPool resolves the project by name, finds or creates the pool within
// it, reconciles the prospect rows and adds every created or updated
// prospect to the pool. An unknown project creates nothing.
func (r *Reconciler) UploadPool(ctx context.Context, projectName, poolName string, recs []Record) (*PoolResult, error) {
	log := r.log.With(zap.String("project", projectName), zap.String("pool", poolName))

	if poolName == "" {
		return nil, appErrors.NewValidation(ModelPool, "pool", "this field is required")
	}

	var (
		pool    *model.Pool
		created bool
	)
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		project, err := reference(ModelPool, "Project", projectName, func() (*model.Project, error) {
			return repos.Projects.GetByNaturalKey(ctx, projectName)
		})
		if err != nil {
			return err
		}
		pool, err = repos.Pools.GetByNaturalKey(ctx, project.ID, poolName)
		if err == nil || !appErrors.IsNotFound(err) {
			return err
		}
		pool = &model.Pool{Name: poolName, ProjectID: project.ID, ProjectName: project.Name}
		if err := pool.Validate(); err != nil {
			return err
		}
		created = true
		return repos.Pools.Create(ctx, pool)
	})
	if err != nil {
		log.Error("cannot upload pool", zap.Error(err))
		return nil, err
	}
	if created {
		log.Debug("created pool")
	}

	prospects, err := run(ctx, r, "Prospect", recs, upsertProspect, nil)
	res := &PoolResult{Pool: pool, PoolCreated: created, Prospects: prospects}
	if err != nil {
		return res, err
	}

	members := make([]*model.Prospect, 0, len(prospects.Created)+len(prospects.Updated))
	members = append(members, prospects.Created...)
	members = append(members, prospects.Updated...)

	added := 0
	err = r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		pools := repository.New(tx).Pools
		for _, p := range members {
			ok, err := pools.AddProspect(ctx, pool.ID, p.ID)
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}
		var err error
		pool.ProspectCount, err = pools.ProspectCount(ctx, pool.ID)
		return err
	})
	if err != nil {
		log.Error("cannot add prospects to pool", zap.Error(err))
		return res, err
	}
	res.Added = added

	log.Info("pool upload finished",
		zap.Bool("pool_created", created),
		zap.Int("added", added),
		zap.Int("prospects", pool.ProspectCount),
	)
	return res, nil
}
