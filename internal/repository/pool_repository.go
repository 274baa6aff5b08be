package repository

import (
	"context"
	"fmt"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type PoolRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Pool, error)
	GetByNaturalKey(ctx context.Context, projectID int64, name string) (*model.Pool, error)
	Create(ctx context.Context, p *model.Pool) error
	Update(ctx context.Context, p *model.Pool) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Pool, int, error)

	// AddProspect links a prospect to the pool and reports whether a new link was made.
	AddProspect(ctx context.Context, poolID, prospectID int64) (bool, error)
	ProspectCount(ctx context.Context, poolID int64) (int, error)
	// RaiseAttempts lifts the member's attempt counter to at least attempt.
	RaiseAttempts(ctx context.Context, poolID, prospectID int64, attempt int) error
}

type PoolRepository struct {
	DB db.DBTX
}

const poolSelect = `
	SELECT p.id, p.name, p.project_id, p.max_attempts, pr.name,
		(SELECT COUNT(*) FROM pool_prospects pp WHERE pp.pool_id = p.id)
	FROM pools p
	JOIN projects pr ON pr.id = p.project_id`

func scanPool(s scanner) (*model.Pool, error) {
	var p model.Pool
	if err := s.Scan(&p.ID, &p.Name, &p.ProjectID, &p.MaxAttempts, &p.ProjectName, &p.ProspectCount); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PoolRepository) GetByID(ctx context.Context, id int64) (*model.Pool, error) {
	p, err := scanPool(r.DB.QueryRowContext(ctx, poolSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "Pool", idKey(id))
	}
	return p, nil
}

func (r *PoolRepository) GetByNaturalKey(ctx context.Context, projectID int64, name string) (*model.Pool, error) {
	p, err := scanPool(r.DB.QueryRowContext(ctx, poolSelect+` WHERE p.project_id = ? AND p.name = ?`, projectID, name))
	if err != nil {
		return nil, notFound(err, "Pool", fmt.Sprintf("%d/%s", projectID, name))
	}
	return p, nil
}

func (r *PoolRepository) Create(ctx context.Context, p *model.Pool) error {
	id, err := insertID(ctx, r.DB, "Pool",
		`INSERT INTO pools (name, project_id, max_attempts) VALUES (?, ?, ?)`, p.Name, p.ProjectID, p.MaxAttempts)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *PoolRepository) Update(ctx context.Context, p *model.Pool) error {
	return execUpdate(ctx, r.DB, "Pool", p.ID,
		`UPDATE pools SET name = ?, project_id = ?, max_attempts = ? WHERE id = ?`,
		p.Name, p.ProjectID, p.MaxAttempts, p.ID)
}

func (r *PoolRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "pools", "Pool", id)
}

func (r *PoolRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "pools")
}

func (r *PoolRepository) List(ctx context.Context, offset, limit int) ([]*model.Pool, int, error) {
	rows, err := r.DB.QueryContext(ctx, poolSelect+` ORDER BY p.id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	pools := []*model.Pool{}
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, 0, err
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return pools, total, nil
}

func (r *PoolRepository) AddProspect(ctx context.Context, poolID, prospectID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO pool_prospects (pool_id, prospect_id, attempts) VALUES (?, ?, 0)
		ON CONFLICT (pool_id, prospect_id) DO NOTHING`, poolID, prospectID)
	if err != nil {
		return false, appErrors.Classify("Pool", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PoolRepository) ProspectCount(ctx context.Context, poolID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM pool_prospects WHERE pool_id = ?`, poolID).Scan(&n)
	return n, err
}

func (r *PoolRepository) RaiseAttempts(ctx context.Context, poolID, prospectID int64, attempt int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE pool_prospects SET attempts = ?
		WHERE pool_id = ? AND prospect_id = ? AND attempts < ?`, attempt, poolID, prospectID, attempt)
	return err
}

var _ PoolRepositoryInterface = (*PoolRepository)(nil)
