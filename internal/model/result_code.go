package model

// ResultCode is the outcome of a call. Incomplete codes mean the prospect
// should be called again.
type ResultCode struct {
	ID         int64  `db:"id" json:"id"`
	ResultCode string `db:"result_code" json:"result_code" validate:"required,max=25"`
	IsComplete bool   `db:"is_complete" json:"is_complete"`
}

func (r *ResultCode) String() string { return r.ResultCode }

func (r *ResultCode) Validate() error {
	return check("ResultCode", r)
}
