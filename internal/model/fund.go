package model

// Fund is a pledge destination, keyed by name.
type Fund struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name" validate:"required,max=50"`
}

func (f *Fund) String() string { return f.Name }

func (f *Fund) Validate() error {
	return check("Fund", f)
}
