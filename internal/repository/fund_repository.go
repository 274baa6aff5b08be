package repository

import (
	"context"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type FundRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Fund, error)
	GetByNaturalKey(ctx context.Context, name string) (*model.Fund, error)
	Create(ctx context.Context, f *model.Fund) error
	Update(ctx context.Context, f *model.Fund) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Fund, int, error)
}

type FundRepository struct {
	DB db.DBTX
}

func (r *FundRepository) GetByID(ctx context.Context, id int64) (*model.Fund, error) {
	var f model.Fund
	err := r.DB.QueryRowContext(ctx, `SELECT id, name FROM funds WHERE id = ?`, id).Scan(&f.ID, &f.Name)
	if err != nil {
		return nil, notFound(err, "Fund", idKey(id))
	}
	return &f, nil
}

func (r *FundRepository) GetByNaturalKey(ctx context.Context, name string) (*model.Fund, error) {
	var f model.Fund
	err := r.DB.QueryRowContext(ctx, `SELECT id, name FROM funds WHERE name = ?`, name).Scan(&f.ID, &f.Name)
	if err != nil {
		return nil, notFound(err, "Fund", name)
	}
	return &f, nil
}

func (r *FundRepository) Create(ctx context.Context, f *model.Fund) error {
	id, err := insertID(ctx, r.DB, "Fund", `INSERT INTO funds (name) VALUES (?)`, f.Name)
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

func (r *FundRepository) Update(ctx context.Context, f *model.Fund) error {
	return execUpdate(ctx, r.DB, "Fund", f.ID, `UPDATE funds SET name = ? WHERE id = ?`, f.Name, f.ID)
}

func (r *FundRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "funds", "Fund", id)
}

func (r *FundRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "funds")
}

func (r *FundRepository) List(ctx context.Context, offset, limit int) ([]*model.Fund, int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM funds ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	funds := []*model.Fund{}
	for rows.Next() {
		f := &model.Fund{}
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, 0, err
		}
		funds = append(funds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return funds, total, nil
}

var _ FundRepositoryInterface = (*FundRepository)(nil)
