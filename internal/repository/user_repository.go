package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByNaturalKey(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	SetLastLogin(ctx context.Context, id int64, at time.Time) error
	SetStaff(ctx context.Context, id int64, staff bool) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, int, error)

	GroupNames(ctx context.Context, userID int64) ([]string, error)
	AddToGroup(ctx context.Context, userID int64, group string) error
	RemoveFromGroup(ctx context.Context, userID int64, group string) error
	// SyncStaff recomputes is_staff from the user's groups and returns the new value.
	SyncStaff(ctx context.Context, userID int64) (bool, error)
}

type UserRepository struct {
	DB db.DBTX
}

const userColumns = `id, username, password, name, email, is_superuser, is_staff, is_active, date_joined, last_login`

func scanUser(s scanner) (*model.User, error) {
	var (
		u         model.User
		joined    string
		lastLogin sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Password, &u.Name, &u.Email,
		&u.IsSuperuser, &u.IsStaff, &u.IsActive, &joined, &lastLogin); err != nil {
		return nil, err
	}
	var err error
	if u.DateJoined, err = parseDate(joined); err != nil {
		return nil, err
	}
	if u.LastLogin, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "User", idKey(id))
	}
	return u, nil
}

func (r *UserRepository) GetByNaturalKey(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, notFound(err, "User", username)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	id, err := insertID(ctx, r.DB, "User", `
		INSERT INTO users (username, password, name, email, is_superuser, is_staff, is_active, date_joined, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Password, u.Name, u.Email, u.IsSuperuser, u.IsStaff, u.IsActive,
		formatDate(u.DateJoined), nullTime(u.LastLogin))
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	return execUpdate(ctx, r.DB, "User", u.ID, `
		UPDATE users
		SET username = ?, password = ?, name = ?, email = ?, is_superuser = ?, is_staff = ?,
			is_active = ?, date_joined = ?
		WHERE id = ?`,
		u.Username, u.Password, u.Name, u.Email, u.IsSuperuser, u.IsStaff, u.IsActive,
		formatDate(u.DateJoined), u.ID)
}

func (r *UserRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	return execUpdate(ctx, r.DB, "User", id, `UPDATE users SET last_login = ? WHERE id = ?`, formatTime(at), id)
}

func (r *UserRepository) SetStaff(ctx context.Context, id int64, staff bool) error {
	return execUpdate(ctx, r.DB, "User", id, `UPDATE users SET is_staff = ? WHERE id = ?`, staff, id)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.DB, "users", "User", id)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "users")
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*model.User, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) GroupNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT g.name FROM auth_groups g
		JOIN auth_user_groups ug ON ug.group_id = g.id
		WHERE ug.user_id = ?
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *UserRepository) AddToGroup(ctx context.Context, userID int64, group string) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO auth_user_groups (user_id, group_id)
		SELECT CAST(? AS BIGINT), id FROM auth_groups WHERE name = ?
		ON CONFLICT DO NOTHING`, userID, group)
	if err != nil {
		return appErrors.Classify("User", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either already a member or the group does not exist.
		var exists int
		err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_groups WHERE name = ?`, group).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return appErrors.NewNotFound("Group", group)
		}
	}
	return nil
}

func (r *UserRepository) RemoveFromGroup(ctx context.Context, userID int64, group string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM auth_user_groups
		WHERE user_id = ? AND group_id IN (SELECT id FROM auth_groups WHERE name = ?)`, userID, group)
	if err != nil {
		return fmt.Errorf("removing user %d from %s: %w", userID, group, err)
	}
	return nil
}

func (r *UserRepository) SyncStaff(ctx context.Context, userID int64) (bool, error) {
	groups, err := r.GroupNames(ctx, userID)
	if err != nil {
		return false, err
	}
	staff := model.StaffFromGroups(groups)
	if err := r.SetStaff(ctx, userID, staff); err != nil {
		return false, err
	}
	return staff, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

// GroupRepository manages the role groups.
type GroupRepository struct {
	DB db.DBTX
}

// Ensure creates the group if it is missing and returns it.
func (r *GroupRepository) Ensure(ctx context.Context, name string) (*model.Group, error) {
	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO auth_groups (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return nil, appErrors.Classify("Group", err)
	}
	return r.GetByName(ctx, name)
}

func (r *GroupRepository) GetByName(ctx context.Context, name string) (*model.Group, error) {
	var g model.Group
	err := r.DB.QueryRowContext(ctx, `SELECT id, name FROM auth_groups WHERE name = ?`, name).Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, notFound(err, "Group", name)
	}
	return &g, nil
}

func (r *GroupRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.DB, "auth_groups")
}

// SessionRepository stores login sessions.
type SessionRepository struct {
	DB db.DBTX
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO auth_sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, formatTime(s.CreatedAt), formatTime(s.ExpiresAt))
	return appErrors.Classify("Session", err)
}

func (r *SessionRepository) Get(ctx context.Context, token string) (*model.Session, error) {
	var (
		s                  model.Session
		created, expiresAt string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM auth_sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &created, &expiresAt)
	if err != nil {
		return nil, notFound(err, "Session", "")
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
	return err
}

// DeleteExpired removes sessions that expired before now and reports how many went.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
