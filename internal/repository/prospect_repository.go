package repository

import (
	"context"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type ProspectRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Prospect, error)
	GetByNaturalKey(ctx context.Context, nric string) (*model.Prospect, error)
	Create(ctx context.Context, p *model.Prospect) error
	Update(ctx context.Context, p *model.Prospect) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Prospect, int, error)
}

type ProspectRepository struct {
	DB db.DBTX
}

const prospectColumns = `id, nric, salutation, name, gender, email, address_1, address_2, address_3,
	address_postal, phone_home, phone_mobile, education_school, education_degree, education_year`

func scanProspect(s scanner) (*model.Prospect, error) {
	var p model.Prospect
	err := s.Scan(&p.ID, &p.NRIC, &p.Salutation, &p.Name, &p.Gender, &p.Email,
		&p.Address1, &p.Address2, &p.Address3, &p.AddressPostal, &p.PhoneHome, &p.PhoneMobile,
		&p.EducationSchool, &p.EducationDegree, &p.EducationYear)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProspectRepository) GetByID(ctx context.Context, id int64) (*model.Prospect, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
	p, err := scanProspect(row)
	if err != nil {
		return nil, notFound(err, "Prospect", idKey(id))
	}
	return p, nil
}

func (r *ProspectRepository) GetByNaturalKey(ctx context.Context, nric string) (*model.Prospect, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE nric = ?`, nric)
	p, err := scanProspect(row)
	if err != nil {
		return nil, notFound(err, "Prospect", nric)
	}
	return p, nil
}

func (r *ProspectRepository) Create(ctx context.Context, p *model.Prospect) error {
	id, err := insertID(ctx, r.DB, "Prospect", `
		INSERT INTO prospects (nric, salutation, name, gender, email, address_1, address_2, address_3,
			address_postal, phone_home, phone_mobile, education_school, education_degree, education_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.NRIC, p.Salutation, p.Name, p.Gender, p.Email, p.Address1, p.Address2, p.Address3,
		p.AddressPostal, p.PhoneHome, p.PhoneMobile, p.EducationSchool, p.EducationDegree, p.EducationYear)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *ProspectRepository) Update(ctx context.Context, p *model.Prospect) error {
	return execUpdate(ctx, r.DB, "Prospect", p.ID, `
		UPDATE prospects
		SET nric = ?, salutation = ?, name = ?, gender = ?, email = ?, address_1 = ?, address_2 = ?,
			address_3 = ?, address_postal = ?, phone_home = ?, phone_mobile = ?, education_school = ?,
			education_degree = ?, education_year = ?
		WHERE id = ?`,
		p.NRIC, p.Salutation, p.Name, p.Gender, p.Email, p.Address1, p.Address2, p.Address3,
		p.AddressPostal, p.PhoneHome, p.PhoneMobile, p.EducationSchool, p.EducationDegree, p.EducationYear,
		p.ID)
}

func (r *ProspectRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "prospects", "Prospect", id)
}

func (r *ProspectRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "prospects")
}

func (r *ProspectRepository) List(ctx context.Context, offset, limit int) ([]*model.Prospect, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	prospects := []*model.Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, 0, err
		}
		prospects = append(prospects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return prospects, total, nil
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)

