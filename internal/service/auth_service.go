package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
)

// AuthService logs users in and out and keeps group membership and staff
// status in step.
type AuthService struct {
	Repos *repository.Repositories
	UoW   db.UnitOfWork
	TTL   time.Duration
	Log   *zap.Logger

	// Now is replaced in tests.
	Now func() time.Time
}

func NewAuthService(database *db.Database, uow db.UnitOfWork, ttl time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		Repos: repository.New(database.Conn()),
		UoW:   uow,
		TTL:   ttl,
		Log:   nopIfNil(log).Named("auth"),
		Now:   time.Now,
	}
}

// Login checks the credentials and opens a session. Unknown users, inactive
// users and wrong passwords all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	u, err := s.Repos.Users.GetByNaturalKey(ctx, username)
	if appErrors.IsNotFound(err) {
		s.Log.Info("login failed", zap.String("username", username), zap.String("reason", "unknown user"))
		return nil, nil, appErrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !u.IsActive || !u.CheckPassword(password) {
		s.Log.Info("login failed", zap.String("username", username), zap.String("reason", "inactive or wrong password"))
		return nil, nil, appErrors.ErrInvalidCredentials
	}

	now := s.Now().UTC()
	sess := &model.Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	err = s.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repos := repository.New(tx)
		if err := repos.Sessions.Create(ctx, sess); err != nil {
			return err
		}
		return repos.Users.SetLastLogin(ctx, u.ID, now)
	})
	if err != nil {
		return nil, nil, err
	}
	u.LastLogin = &now
	if u.Groups, err = s.Repos.Users.GroupNames(ctx, u.ID); err != nil {
		return nil, nil, err
	}

	s.Log.Info("logged in", zap.String("username", u.Username))
	return u, sess, nil
}

// Logout ends the session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Repos.Sessions.Delete(ctx, token)
}

// Authenticate returns the user behind a session token with its groups
// loaded. Expired sessions are removed.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, appErrors.ErrSessionExpired
	}
	sess, err := s.Repos.Sessions.Get(ctx, token)
	if appErrors.IsNotFound(err) {
		return nil, appErrors.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.Now()) {
		if err := s.Repos.Sessions.Delete(ctx, token); err != nil {
			return nil, err
		}
		return nil, appErrors.ErrSessionExpired
	}

	u, err := s.Repos.Users.GetByID(ctx, sess.UserID)
	if appErrors.IsNotFound(err) {
		return nil, appErrors.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, appErrors.ErrSessionExpired
	}
	if u.Groups, err = s.Repos.Users.GroupNames(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// PurgeSessions deletes every expired session.
func (s *AuthService) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.Repos.Sessions.DeleteExpired(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Info("purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// AddToGroup adds the user to group and recomputes staff status.
func (s *AuthService) AddToGroup(ctx context.Context, userID int64, group string) (*model.User, error) {
	return s.changeGroups(ctx, userID, func(ctx context.Context, users repository.UserRepositoryInterface) error {
		err := users.AddToGroup(ctx, userID, group)
		if appErrors.IsNotFound(err) {
			return appErrors.NewMissingReference("User", "Group", group)
		}
		return err
	})
}

// RemoveFromGroup removes the user from group and recomputes staff status.
func (s *AuthService) RemoveFromGroup(ctx context.Context, userID int64, group string) (*model.User, error) {
	return s.changeGroups(ctx, userID, func(ctx context.Context, users repository.UserRepositoryInterface) error {
		return users.RemoveFromGroup(ctx, userID, group)
	})
}

func (s *AuthService) changeGroups(ctx context.Context, userID int64, change func(context.Context, repository.UserRepositoryInterface) error) (*model.User, error) {
	var u *model.User
	err := s.UoW.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		users := repository.New(tx).Users
		if err := change(ctx, users); err != nil {
			return err
		}
		if _, err := users.SyncStaff(ctx, userID); err != nil {
			return err
		}
		var err error
		if u, err = users.GetByID(ctx, userID); err != nil {
			return err
		}
		u.Groups, err = users.GroupNames(ctx, userID)
		return err
	})
	if err != nil {
		var missing *appErrors.MissingReferenceError
		if !errors.As(err, &missing) && !appErrors.IsNotFound(err) {
			s.Log.Error("group change failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil, err
	}
	s.Log.Info("groups changed", zap.String("username", u.Username), zap.Strings("groups", u.Groups), zap.Bool("is_staff", u.IsStaff))
	return u, nil
}
