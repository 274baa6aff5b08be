// Package seed loads the initial data every phonathon database starts with:
// the role groups, the standard result codes and an administrator.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

//go:embed initial_data.yaml
var initialData []byte

type ResultCode struct {
	ResultCode string `yaml:"result_code"`
	IsComplete bool   `yaml:"is_complete"`
}

type Superuser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
}

// Data is the parsed initial data document.
type Data struct {
	Groups      []string     `yaml:"groups"`
	ResultCodes []ResultCode `yaml:"result_codes"`
	Superuser   Superuser    `yaml:"superuser"`
}

// Load parses the embedded initial data.
func Load() (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(initialData, &d); err != nil {
		return nil, fmt.Errorf("parsing initial data: %w", err)
	}
	return &d, nil
}

// Report counts what Apply inserted.
type Report struct {
	Groups       int
	ResultCodes  int
	AdminCreated bool
}

type Seeder struct {
	uow db.UnitOfWork
	log *zap.Logger
}

func NewSeeder(uow db.UnitOfWork, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{uow: uow, log: log.Named("seed")}
}

// Apply inserts whatever part of the initial data is missing. Existing rows
// are left as they are, so it is safe to run on every deploy.
func (s *Seeder) Apply(ctx context.Context, adminPassword string) (*Report, error) {
	data, err := Load()
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)

		before, err := repos.Groups.Count(ctx)
		if err != nil {
			return err
		}
		for _, name := range data.Groups {
			if _, err := repos.Groups.Ensure(ctx, name); err != nil {
				return fmt.Errorf("group %q: %w", name, err)
			}
		}
		after, err := repos.Groups.Count(ctx)
		if err != nil {
			return err
		}
		rep.Groups = after - before

		for _, rc := range data.ResultCodes {
			_, err := repos.ResultCodes.GetByNaturalKey(ctx, rc.ResultCode)
			if err == nil {
				continue
			}
			if !appErrors.IsNotFound(err) {
				return err
			}
			if err := repos.ResultCodes.Create(ctx, &model.ResultCode{ResultCode: rc.ResultCode, IsComplete: rc.IsComplete}); err != nil {
				return fmt.Errorf("result code %q: %w", rc.ResultCode, err)
			}
			rep.ResultCodes++
		}

		rep.AdminCreated, err = EnsureSuperuser(ctx, repos, data.Superuser, adminPassword, false)
		return err
	})
	if err != nil {
		s.log.Error("initial data failed", zap.Error(err))
		return nil, err
	}

	s.log.Info("initial data applied",
		zap.Int("groups", rep.Groups),
		zap.Int("result_codes", rep.ResultCodes),
		zap.Bool("admin_created", rep.AdminCreated),
	)
	return rep, nil
}

// EnsureSuperuser creates su as a staff superuser when absent. An existing
// account keeps its password unless reset is set; it is always promoted.
func EnsureSuperuser(ctx context.Context, repos *repository.Repositories, su Superuser, password string, reset bool) (bool, error) {
	if password == "" {
		return false, appErrors.NewValidation("User", "password", "this field is required")
	}

	u, err := repos.Users.GetByNaturalKey(ctx, su.Username)
	switch {
	case err == nil:
		u.IsSuperuser, u.IsStaff, u.IsActive = true, true, true
		if reset {
			if err := u.SetPassword(password); err != nil {
				return false, err
			}
		}
		return false, repos.Users.Update(ctx, u)
	case !appErrors.IsNotFound(err):
		return false, err
	}

	y, m, d := time.Now().Date()
	u = &model.User{
		Username:    su.Username,
		Name:        su.Name,
		Email:       su.Email,
		IsSuperuser: true,
		IsStaff:     true,
		IsActive:    true,
		DateJoined:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}
	if u.Name == "" {
		u.Name = su.Username
	}
	if err := u.SetPassword(password); err != nil {
		return false, err
	}
	if err := u.Validate(); err != nil {
		return false, err
	}
	if err := repos.Users.Create(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
