package model

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Group names seeded with the initial data.
const (
	GroupManagers    = "Managers"
	GroupSupervisors = "Supervisors"
	GroupCallers     = "Callers"
)

// User is a phonathon caller or staff member. Username is the natural key.
type User struct {
	ID          int64      `db:"id" json:"id"`
	Username    string     `db:"username" json:"username" validate:"required,max=15"`
	Password    string     `db:"password" json:"-"`
	Name        string     `db:"name" json:"name" validate:"required,max=50"`
	Email       string     `db:"email" json:"email" validate:"omitempty,email"`
	IsSuperuser bool       `db:"is_superuser" json:"is_superuser"`
	IsStaff     bool       `db:"is_staff" json:"is_staff"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	DateJoined  time.Time  `db:"date_joined" json:"date_joined"`
	LastLogin   *time.Time `db:"last_login" json:"last_login,omitempty"`

	// Groups is filled in by the repository when membership is needed.
	Groups []string `db:"-" json:"groups,omitempty"`
}

func (u *User) String() string {
	return fmt.Sprintf("%s (%s)", u.Name, u.Username)
}

func (u *User) Validate() error {
	return check("User", u)
}

// SetPassword stores a bcrypt hash of raw. The raw value is never kept.
func (u *User) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether raw matches the stored hash.
func (u *User) CheckPassword(raw string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(raw)) == nil
}

func (u *User) InGroup(name string) bool {
	return slices.Contains(u.Groups, name)
}

// IsManagerAndAbove is true for superusers and members of Managers.
func (u *User) IsManagerAndAbove() bool {
	return u.IsSuperuser || u.InGroup(GroupManagers)
}

// StaffFromGroups is the staff flag implied by a set of group names.
func StaffFromGroups(groups []string) bool {
	return slices.Contains(groups, GroupManagers) || slices.Contains(groups, GroupSupervisors)
}

// Group is a role a user may belong to.
type Group struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Session is a logged-in browser.
type Session struct {
	Token     string    `db:"token" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
