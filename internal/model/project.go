package model

// Project is a calling campaign, keyed by name.
type Project struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name" validate:"required,max=50"`
}

func (p *Project) String() string { return p.Name }

func (p *Project) Validate() error {
	return check("Project", p)
}
