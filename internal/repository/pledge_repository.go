package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type PledgeRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Pledge, error)
	GetByNaturalKey(ctx context.Context, prospectID, fundID int64, date time.Time, amount decimal.Decimal) (*model.Pledge, error)
	Create(ctx context.Context, p *model.Pledge) error
	Update(ctx context.Context, p *model.Pledge) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Pledge, int, error)
}

type PledgeRepository struct {
	DB db.DBTX
}

// money renders amounts the same way for writes and natural key lookups.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

const pledgeColumns = `id, prospect_id, fund_id, amount, pledge_date`

func scanPledge(s scanner) (*model.Pledge, error) {
	var (
		p    model.Pledge
		date string
	)
	if err := s.Scan(&p.ID, &p.ProspectID, &p.FundID, &p.Amount, &date); err != nil {
		return nil, err
	}
	var err error
	if p.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PledgeRepository) GetByID(ctx context.Context, id int64) (*model.Pledge, error) {
	p, err := scanPledge(r.DB.QueryRowContext(ctx, `SELECT `+pledgeColumns+` FROM pledges WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "Pledge", idKey(id))
	}
	return p, nil
}

func (r *PledgeRepository) GetByNaturalKey(ctx context.Context, prospectID, fundID int64, date time.Time, amount decimal.Decimal) (*model.Pledge, error) {
	p, err := scanPledge(r.DB.QueryRowContext(ctx, `
		SELECT `+pledgeColumns+` FROM pledges
		WHERE prospect_id = ? AND fund_id = ? AND pledge_date = ? AND amount = ?`,
		prospectID, fundID, formatDate(date), money(amount)))
	if err != nil {
		return nil, notFound(err, "Pledge", fmt.Sprintf("%d/%d/%s/%s", prospectID, fundID, formatDate(date), money(amount)))
	}
	return p, nil
}

func (r *PledgeRepository) Create(ctx context.Context, p *model.Pledge) error {
	id, err := insertID(ctx, r.DB, "Pledge",
		`INSERT INTO pledges (prospect_id, fund_id, amount, pledge_date) VALUES (?, ?, ?, ?)`,
		p.ProspectID, p.FundID, money(p.Amount), formatDate(p.Date))
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *PledgeRepository) Update(ctx context.Context, p *model.Pledge) error {
	return execUpdate(ctx, r.DB, "Pledge", p.ID,
		`UPDATE pledges SET prospect_id = ?, fund_id = ?, amount = ?, pledge_date = ? WHERE id = ?`,
		p.ProspectID, p.FundID, money(p.Amount), formatDate(p.Date), p.ID)
}

func (r *PledgeRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "pledges", "Pledge", id)
}

func (r *PledgeRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "pledges")
}

func (r *PledgeRepository) List(ctx context.Context, offset, limit int) ([]*model.Pledge, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+pledgeColumns+` FROM pledges ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	pledges := []*model.Pledge{}
	for rows.Next() {
		p, err := scanPledge(rows)
		if err != nil {
			return nil, 0, err
		}
		pledges = append(pledges, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return pledges, total, nil
}

var _ PledgeRepositoryInterface = (*PledgeRepository)(nil)
