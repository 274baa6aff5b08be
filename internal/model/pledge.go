package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
)

// Pledge is money promised by a prospect to a fund on a date.
// (Prospect, Fund, Date, Amount) identifies an uploaded pledge.
type Pledge struct {
	ID         int64           `db:"id" json:"id"`
	ProspectID int64           `db:"prospect_id" json:"prospect_id" validate:"required"`
	FundID     int64           `db:"fund_id" json:"fund_id" validate:"required"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Date       time.Time       `db:"pledge_date" json:"pledge_date"`

	Prospect *Prospect `db:"-" json:"prospect,omitempty" validate:"-"`
	Fund     *Fund     `db:"-" json:"fund,omitempty" validate:"-"`
}

func (p *Pledge) String() string {
	prospect, fund := "", ""
	if p.Prospect != nil {
		prospect = p.Prospect.String()
	}
	if p.Fund != nil {
		fund = p.Fund.String()
	}
	return fmt.Sprintf("%s - $%s (%s)", prospect, p.Amount.String(), fund)
}

func (p *Pledge) Validate() error {
	if err := check("Pledge", p); err != nil {
		return err
	}
	if err := checkAmount("Pledge", "pledge_amount", p.Amount); err != nil {
		return err
	}
	if p.Date.IsZero() {
		return appErrors.NewValidation("Pledge", "pledge_date", "this field is required")
	}
	return nil
}
