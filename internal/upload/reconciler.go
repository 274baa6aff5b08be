package upload

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

// Upload model names, as offered by the upload form.
const (
	ModelCaller     = "Caller"
	ModelProspect   = "Prospect"
	ModelFund       = "Fund"
	ModelProject    = "Project"
	ModelResultCode = "ResultCode"
	ModelPledge     = "Pledge"
	ModelCall       = "Call"
	ModelAssignment = "Assignment"
)

// Models lists every uploadable model in form order.
var Models = []string{
	ModelCaller, ModelProspect, ModelFund, ModelProject,
	ModelResultCode, ModelPledge, ModelCall, ModelAssignment,
}

// Reconciler upserts uploaded rows by natural key. Each row runs in its own
// transaction, in input order.
type Reconciler struct {
	uow db.UnitOfWork
	log *zap.Logger
}

func NewReconciler(uow db.UnitOfWork, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{uow: uow, log: log.Named("upload")}
}

// outcome is what one row did.
type outcome[T any] struct {
	item    T
	created bool
	changed []string
}

type rowFunc[T any] func(ctx context.Context, repos *repository.Repositories, row Row) (outcome[T], error)

// Guard is called inside a row's transaction once the row is written and
// before it commits. An error rolls the row back and stops the batch.
type Guard func(created bool, obj fmt.Stringer) error

// run applies fn to every record. Records failing with a skippable kind are
// logged and recorded; any other error stops the batch and is returned with
// the partial result.
func run[T fmt.Stringer](ctx context.Context, r *Reconciler, entity string, recs []Record, fn rowFunc[T], guard Guard) (*Result[T], error) {
	res := &Result[T]{}
	log := r.log.With(zap.String("entity", entity))

	for _, rec := range recs {
		line, row := rec.Line, rec.Row
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("uploading %s: %w", entity, err)
		}

		var out outcome[T]
		err := rec.Err
		if err == nil {
			err = r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				var err error
				if out, err = fn(ctx, repository.New(tx), row); err != nil {
					return err
				}
				if guard != nil {
					return guard(out.created, out.item)
				}
				return nil
			})
		}
		if err != nil {
			kind, ok := kindOf(err)
			if !ok {
				log.Error("upload aborted", zap.Int("line", line), zap.Object("row", row), zap.Error(err))
				return res, fmt.Errorf("uploading %s line %d: %w", entity, line, err)
			}
			res.Skipped = append(res.Skipped, RowError{Line: line, Kind: kind, Row: row, Err: err})
			log.Error("skipped row",
				zap.Int("line", line),
				zap.String("kind", string(kind)),
				zap.Object("row", row),
				zap.Error(err),
			)
			continue
		}

		if out.created {
			res.Created = append(res.Created, out.item)
			log.Debug("created", zap.Int("line", line), zap.Stringer("object", out.item))
		} else {
			res.Updated = append(res.Updated, out.item)
			log.Debug("updated", zap.Int("line", line), zap.Stringer("object", out.item), zap.Strings("changed", out.changed))
		}
	}

	log.Info("upload finished",
		zap.Int("rows", len(recs)),
		zap.Int("created", len(res.Created)),
		zap.Int("updated", len(res.Updated)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// Summary is a model-agnostic view of a Result.
type Summary struct {
	Model   string
	Created []string
	Updated []string
	Skipped []RowError
}

func summarize[T fmt.Stringer](model string, res *Result[T]) *Summary {
	if res == nil {
		return &Summary{Model: model}
	}
	s := &Summary{Model: model, Skipped: res.Skipped}
	for _, c := range res.Created {
		s.Created = append(s.Created, c.String())
	}
	for _, u := range res.Updated {
		s.Updated = append(s.Updated, u.String())
	}
	return s
}

// Upload reconciles records for the named model. The summary is returned
// even when the batch is aborted.
func (r *Reconciler) Upload(ctx context.Context, model string, recs []Record) (*Summary, error) {
	return r.reconcile(ctx, model, recs, false, nil)
}

// Edit writes one row the way the admin API does: an existing user keeps
// their password unless the row sets one, and guard may veto the write.
func (r *Reconciler) Edit(ctx context.Context, model string, row Row, guard Guard) (*Summary, error) {
	return r.reconcile(ctx, model, Records([]Row{row}), true, guard)
}

func (r *Reconciler) reconcile(ctx context.Context, model string, recs []Record, edit bool, guard Guard) (*Summary, error) {
	switch model {
	case ModelCaller:
		res, err := run(ctx, r, "User", recs, upsertUser(edit), guard)
		return summarize(model, res), err
	case ModelProspect:
		res, err := run(ctx, r, "Prospect", recs, upsertProspect, guard)
		return summarize(model, res), err
	case ModelFund:
		res, err := run(ctx, r, "Fund", recs, upsertFund, guard)
		return summarize(model, res), err
	case ModelProject:
		res, err := run(ctx, r, "Project", recs, upsertProject, guard)
		return summarize(model, res), err
	case ModelResultCode:
		res, err := run(ctx, r, "ResultCode", recs, upsertResultCode, guard)
		return summarize(model, res), err
	case ModelPledge:
		res, err := run(ctx, r, "Pledge", recs, upsertPledge, guard)
		return summarize(model, res), err
	case ModelCall:
		res, err := run(ctx, r, "Call", recs, upsertCall, guard)
		return summarize(model, res), err
	case ModelAssignment:
		res, err := run(ctx, r, "Assignment", recs, upsertAssignment, guard)
		return summarize(model, res), err
	}
	r.log.Error("cannot upload data", zap.String("model", model))
	return nil, fmt.Errorf("%w: %q", appErrors.ErrUnsupportedModel, model)
}
