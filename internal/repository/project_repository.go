package repository

import (
	"context"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type ProjectRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	GetByNaturalKey(ctx context.Context, name string) (*model.Project, error)
	Create(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Project, int, error)
}

type ProjectRepository struct {
	DB db.DBTX
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := r.DB.QueryRowContext(ctx, `SELECT id, name FROM projects WHERE id = ?`, id).Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, notFound(err, "Project", idKey(id))
	}
	return &p, nil
}

func (r *ProjectRepository) GetByNaturalKey(ctx context.Context, name string) (*model.Project, error) {
	var p model.Project
	err := r.DB.QueryRowContext(ctx, `SELECT id, name FROM projects WHERE name = ?`, name).Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, notFound(err, "Project", name)
	}
	return &p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *model.Project) error {
	id, err := insertID(ctx, r.DB, "Project", `INSERT INTO projects (name) VALUES (?)`, p.Name)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	return execUpdate(ctx, r.DB, "Project", p.ID, `UPDATE projects SET name = ? WHERE id = ?`, p.Name, p.ID)
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "projects", "Project", id)
}

func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "projects")
}

func (r *ProjectRepository) List(ctx context.Context, offset, limit int) ([]*model.Project, int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM projects ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

var _ ProjectRepositoryInterface = (*ProjectRepository)(nil)
