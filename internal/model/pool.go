package model

// Pool groups prospects to be called within a project. (ProjectID, Name) is unique.
type Pool struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name" validate:"required,max=50"`
	ProjectID   int64  `db:"project_id" json:"project_id" validate:"required"`
	MaxAttempts int    `db:"max_attempts" json:"max_attempts" validate:"gte=0,max=32767"`

	ProjectName   string `db:"-" json:"project,omitempty"`
	ProspectCount int    `db:"-" json:"prospect_count"`
}

func (p *Pool) String() string { return p.Name }

// IsActive reports whether callers may still work the pool.
func (p *Pool) IsActive() bool {
	return p.MaxAttempts > 0
}

func (p *Pool) Validate() error {
	return check("Pool", p)
}
