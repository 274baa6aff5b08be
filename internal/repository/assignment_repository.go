package repository

import (
	"context"
	"fmt"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type AssignmentRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Assignment, error)
	GetByNaturalKey(ctx context.Context, callerID, poolID int64) (*model.Assignment, error)
	Create(ctx context.Context, a *model.Assignment) error
	Update(ctx context.Context, a *model.Assignment) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Assignment, int, error)
	// CurrentPool is the caller's lowest-order assigned pool.
	CurrentPool(ctx context.Context, callerID int64) (*model.Pool, error)
}

type AssignmentRepository struct {
	DB db.DBTX
}

const assignmentColumns = `id, caller_id, pool_id, sort_order`

func scanAssignment(s scanner) (*model.Assignment, error) {
	var a model.Assignment
	if err := s.Scan(&a.ID, &a.CallerID, &a.PoolID, &a.Order); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*model.Assignment, error) {
	a, err := scanAssignment(r.DB.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "Assignment", idKey(id))
	}
	return a, nil
}

func (r *AssignmentRepository) GetByNaturalKey(ctx context.Context, callerID, poolID int64) (*model.Assignment, error) {
	a, err := scanAssignment(r.DB.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE caller_id = ? AND pool_id = ?`, callerID, poolID))
	if err != nil {
		return nil, notFound(err, "Assignment", fmt.Sprintf("%d/%d", callerID, poolID))
	}
	return a, nil
}

func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	id, err := insertID(ctx, r.DB, "Assignment",
		`INSERT INTO assignments (caller_id, pool_id, sort_order) VALUES (?, ?, ?)`, a.CallerID, a.PoolID, a.Order)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *AssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	return execUpdate(ctx, r.DB, "Assignment", a.ID,
		`UPDATE assignments SET caller_id = ?, pool_id = ?, sort_order = ? WHERE id = ?`,
		a.CallerID, a.PoolID, a.Order, a.ID)
}

func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "assignments", "Assignment", id)
}

func (r *AssignmentRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "assignments")
}

func (r *AssignmentRepository) List(ctx context.Context, offset, limit int) ([]*model.Assignment, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments ORDER BY caller_id, sort_order LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assignments := []*model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (r *AssignmentRepository) CurrentPool(ctx context.Context, callerID int64) (*model.Pool, error) {
	p, err := scanPool(r.DB.QueryRowContext(ctx, poolSelect+`
		JOIN assignments a ON a.pool_id = p.id
		WHERE a.caller_id = ?
		ORDER BY a.sort_order, a.id
		LIMIT 1`, callerID))
	if err != nil {
		return nil, notFound(err, "Assignment", fmt.Sprintf("caller %d", callerID))
	}
	return p, nil
}

var _ AssignmentRepositoryInterface = (*AssignmentRepository)(nil)
