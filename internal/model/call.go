package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pledge methods a caller may record.
const (
	MethodCheck  = "Check"
	MethodCredit = "Credit"
	MethodEFT    = "EFT"
)

// Call is one attempt by a caller to reach a prospect.
// (Caller, Prospect, Project, Pool, Attempt) is the natural key.
type Call struct {
	ID           int64               `db:"id" json:"id"`
	CallerID     int64               `db:"caller_id" json:"caller_id" validate:"required"`
	ProspectID   int64               `db:"prospect_id" json:"prospect_id" validate:"required"`
	ProjectID    int64               `db:"project_id" json:"project_id" validate:"required"`
	PoolID       *int64              `db:"pool_id" json:"pool_id,omitempty"`
	Attempt      int                 `db:"attempt" json:"attempt" validate:"min=1,max=32767"`
	ResultCodeID int64               `db:"result_code_id" json:"result_code_id" validate:"required"`
	CallTime     time.Time           `db:"call_time" json:"call_time"`
	Comment      string              `db:"comment" json:"comment"`
	PledgeAmount decimal.NullDecimal `db:"pledge_amount" json:"pledge_amount"`
	PledgeMethod string              `db:"pledge_method" json:"pledge_method" validate:"omitempty,oneof=Check Credit EFT"`
	PledgeMeta   string              `db:"pledge_meta" json:"pledge_meta"`

	Caller   *User     `db:"-" json:"-" validate:"-"`
	Prospect *Prospect `db:"-" json:"-" validate:"-"`
}

func (c *Call) String() string {
	prospect, caller := "", ""
	if c.Prospect != nil {
		prospect = c.Prospect.String()
	}
	if c.Caller != nil {
		caller = c.Caller.String()
	}
	return fmt.Sprintf("%s - %s", prospect, caller)
}

func (c *Call) Validate() error {
	if err := check("Call", c); err != nil {
		return err
	}
	if c.PledgeAmount.Valid {
		return checkAmount("Call", "pledge_amount", c.PledgeAmount.Decimal)
	}
	return nil
}
