package repository

import "github.com/unclebandit/phonathon-backend/internal/db"

// Repositories bundles every repository over one DBTX, so code inside a
// transaction reads and writes through the same handle.
type Repositories struct {
	Users       UserRepositoryInterface
	Groups      *GroupRepository
	Sessions    *SessionRepository
	Prospects   ProspectRepositoryInterface
	Funds       FundRepositoryInterface
	Projects    ProjectRepositoryInterface
	Pools       PoolRepositoryInterface
	ResultCodes ResultCodeRepositoryInterface
	Pledges     PledgeRepositoryInterface
	Calls       CallRepositoryInterface
	Assignments AssignmentRepositoryInterface
}

func New(q db.DBTX) *Repositories {
	return &Repositories{
		Users:       &UserRepository{DB: q},
		Groups:      &GroupRepository{DB: q},
		Sessions:    &SessionRepository{DB: q},
		Prospects:   &ProspectRepository{DB: q},
		Funds:       &FundRepository{DB: q},
		Projects:    &ProjectRepository{DB: q},
		Pools:       &PoolRepository{DB: q},
		ResultCodes: &ResultCodeRepository{DB: q},
		Pledges:     &PledgeRepository{DB: q},
		Calls:       &CallRepository{DB: q},
		Assignments: &AssignmentRepository{DB: q},
	}
}
