package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

// CallKey is the natural key of a call.
type CallKey struct {
	CallerID   int64
	ProspectID int64
	ProjectID  int64
	PoolID     *int64
	Attempt    int
}

func (k CallKey) String() string {
	pool := "-"
	if k.PoolID != nil {
		pool = idKey(*k.PoolID)
	}
	return fmt.Sprintf("%d/%d/%d/%s/%d", k.CallerID, k.ProspectID, k.ProjectID, pool, k.Attempt)
}

type CallRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Call, error)
	GetByNaturalKey(ctx context.Context, key CallKey) (*model.Call, error)
	Create(ctx context.Context, c *model.Call) error
	Update(ctx context.Context, c *model.Call) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Call, int, error)
}

type CallRepository struct {
	DB db.DBTX
}

const callColumns = `id, caller_id, prospect_id, project_id, pool_id, attempt, result_code_id,
	call_time, comment, pledge_amount, pledge_method, pledge_meta`

func scanCall(s scanner) (*model.Call, error) {
	var (
		c        model.Call
		poolID   sql.NullInt64
		callTime string
	)
	if err := s.Scan(&c.ID, &c.CallerID, &c.ProspectID, &c.ProjectID, &poolID, &c.Attempt, &c.ResultCodeID,
		&callTime, &c.Comment, &c.PledgeAmount, &c.PledgeMethod, &c.PledgeMeta); err != nil {
		return nil, err
	}
	c.PoolID = int64Ptr(poolID)
	var err error
	if c.CallTime, err = parseTime(callTime); err != nil {
		return nil, err
	}
	return &c, nil
}

func pledgeAmountArg(c *model.Call) sql.NullString {
	if !c.PledgeAmount.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: money(c.PledgeAmount.Decimal), Valid: true}
}

func (r *CallRepository) GetByID(ctx context.Context, id int64) (*model.Call, error) {
	c, err := scanCall(r.DB.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "Call", idKey(id))
	}
	return c, nil
}

func (r *CallRepository) GetByNaturalKey(ctx context.Context, key CallKey) (*model.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls
		WHERE caller_id = ? AND prospect_id = ? AND project_id = ? AND attempt = ? AND `
	args := []any{key.CallerID, key.ProspectID, key.ProjectID, key.Attempt}
	if key.PoolID == nil {
		query += `pool_id IS NULL`
	} else {
		query += `pool_id = ?`
		args = append(args, *key.PoolID)
	}
	c, err := scanCall(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "Call", key.String())
	}
	return c, nil
}

// Create stamps CallTime and inserts the call.
func (r *CallRepository) Create(ctx context.Context, c *model.Call) error {
	c.CallTime = time.Now()
	id, err := insertID(ctx, r.DB, "Call", `
		INSERT INTO calls (caller_id, prospect_id, project_id, pool_id, attempt, result_code_id,
			call_time, comment, pledge_amount, pledge_method, pledge_meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CallerID, c.ProspectID, c.ProjectID, nullInt64(c.PoolID), c.Attempt, c.ResultCodeID,
		formatTime(c.CallTime), c.Comment, pledgeAmountArg(c), c.PledgeMethod, c.PledgeMeta)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// Update stamps CallTime and saves every column.
func (r *CallRepository) Update(ctx context.Context, c *model.Call) error {
	c.CallTime = time.Now()
	return execUpdate(ctx, r.DB, "Call", c.ID, `
		UPDATE calls
		SET caller_id = ?, prospect_id = ?, project_id = ?, pool_id = ?, attempt = ?, result_code_id = ?,
			call_time = ?, comment = ?, pledge_amount = ?, pledge_method = ?, pledge_meta = ?
		WHERE id = ?`,
		c.CallerID, c.ProspectID, c.ProjectID, nullInt64(c.PoolID), c.Attempt, c.ResultCodeID,
		formatTime(c.CallTime), c.Comment, pledgeAmountArg(c), c.PledgeMethod, c.PledgeMeta, c.ID)
}

func (r *CallRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "calls", "Call", id)
}

func (r *CallRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "calls")
}

func (r *CallRepository) List(ctx context.Context, offset, limit int) ([]*model.Call, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	calls := []*model.Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, 0, err
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return calls, total, nil
}

var _ CallRepositoryInterface = (*CallRepository)(nil)
