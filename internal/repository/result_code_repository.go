package repository

import (
	"context"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type ResultCodeRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.ResultCode, error)
	GetByNaturalKey(ctx context.Context, code string) (*model.ResultCode, error)
	Create(ctx context.Context, rc *model.ResultCode) error
	Update(ctx context.Context, rc *model.ResultCode) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountComplete(ctx context.Context, complete bool) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.ResultCode, int, error)
}

type ResultCodeRepository struct {
	DB db.DBTX
}

func (r *ResultCodeRepository) GetByID(ctx context.Context, id int64) (*model.ResultCode, error) {
	var rc model.ResultCode
	err := r.DB.QueryRowContext(ctx, `SELECT id, result_code, is_complete FROM result_codes WHERE id = ?`, id).
		Scan(&rc.ID, &rc.ResultCode, &rc.IsComplete)
	if err != nil {
		return nil, notFound(err, "ResultCode", idKey(id))
	}
	return &rc, nil
}

func (r *ResultCodeRepository) GetByNaturalKey(ctx context.Context, code string) (*model.ResultCode, error) {
	var rc model.ResultCode
	err := r.DB.QueryRowContext(ctx, `SELECT id, result_code, is_complete FROM result_codes WHERE result_code = ?`, code).
		Scan(&rc.ID, &rc.ResultCode, &rc.IsComplete)
	if err != nil {
		return nil, notFound(err, "ResultCode", code)
	}
	return &rc, nil
}

func (r *ResultCodeRepository) Create(ctx context.Context, rc *model.ResultCode) error {
	id, err := insertID(ctx, r.DB, "ResultCode",
		`INSERT INTO result_codes (result_code, is_complete) VALUES (?, ?)`, rc.ResultCode, rc.IsComplete)
	if err != nil {
		return err
	}
	rc.ID = id
	return nil
}

func (r *ResultCodeRepository) Update(ctx context.Context, rc *model.ResultCode) error {
	return execUpdate(ctx, r.DB, "ResultCode", rc.ID,
		`UPDATE result_codes SET result_code = ?, is_complete = ? WHERE id = ?`, rc.ResultCode, rc.IsComplete, rc.ID)
}

func (r *ResultCodeRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "result_codes", "ResultCode", id)
}

func (r *ResultCodeRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "result_codes")
}

func (r *ResultCodeRepository) CountComplete(ctx context.Context, complete bool) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM result_codes WHERE is_complete = ?`, complete).Scan(&n)
	return n, err
}

func (r *ResultCodeRepository) List(ctx context.Context, offset, limit int) ([]*model.ResultCode, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, result_code, is_complete FROM result_codes ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	codes := []*model.ResultCode{}
	for rows.Next() {
		rc := &model.ResultCode{}
		if err := rows.Scan(&rc.ID, &rc.ResultCode, &rc.IsComplete); err != nil {
			return nil, 0, err
		}
		codes = append(codes, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

var _ ResultCodeRepositoryInterface = (*ResultCodeRepository)(nil)
