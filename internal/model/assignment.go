package model

import "fmt"

// Assignment puts a pool in a caller's queue. Lower Order is worked first.
type Assignment struct {
	ID       int64 `db:"id" json:"id"`
	CallerID int64 `db:"caller_id" json:"caller_id" validate:"required"`
	PoolID   int64 `db:"pool_id" json:"pool_id" validate:"required"`
	Order    int   `db:"sort_order" json:"order" validate:"min=1,max=32767"`

	Caller *User `db:"-" json:"-" validate:"-"`
	Pool   *Pool `db:"-" json:"-" validate:"-"`
}

func (a *Assignment) String() string {
	caller, pool := "", ""
	if a.Caller != nil {
		caller = a.Caller.String()
	}
	if a.Pool != nil {
		pool = a.Pool.String()
	}
	return fmt.Sprintf("%s: (%d) %s", caller, a.Order, pool)
}

func (a *Assignment) Validate() error {
	return check("Assignment", a)
}
