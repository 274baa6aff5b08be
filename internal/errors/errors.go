// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrUnsupportedModel is returned when an upload names a model with no reconciler.
var ErrUnsupportedModel = errors.New("upload is not supported for this model")

// ErrInvalidCredentials is returned by login for unknown users, inactive users and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrSessionExpired is returned when a session token is unknown or past its expiry.
var ErrSessionExpired = errors.New("session expired")

// ErrPermissionDenied is returned when a user lacks the permission an admin action needs.
var ErrPermissionDenied = errors.New("permission denied")

// ErrUnknownResource is returned for admin resources that do not exist.
var ErrUnknownResource = errors.New("unknown resource")

// NotFoundError is returned by repositories when a natural key or id has no row.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func NewNotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// MissingReferenceError means a row pointed at a foreign natural key that does not exist.
type MissingReferenceError struct {
	Entity string // entity being reconciled
	Ref    string // referenced entity
	Key    string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("cannot create %s object, no %s %q", e.Entity, e.Ref, e.Key)
}

func NewMissingReference(entity, ref, key string) error {
	return &MissingReferenceError{Entity: entity, Ref: ref, Key: key}
}

// IntegrityError wraps a uniqueness, foreign key, not-null or check violation.
type IntegrityError struct {
	Entity string
	Err    error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cannot create %s object: %v", e.Entity, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// ValidationError is a malformed, missing or unknown field. Err is set when
// the database rejected the value.
type ValidationError struct {
	Entity string
	Field  string
	Msg    string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Msg)
	}
	return fmt.Sprintf("invalid %s field %q: %s", e.Entity, e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidation(entity, field, msg string) error {
	return &ValidationError{Entity: entity, Field: field, Msg: msg}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// sqliteError matches modernc.org/sqlite errors without importing the driver here.
type sqliteError interface {
	Code() int
}

const (
	sqliteConstraint = 19
	pqDataClass      = "22"
	pqIntegrityClass = "23"
)

// IsConstraintViolation reports whether err came from the database rejecting a write
// because of a constraint.
func IsConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code.Class()) == pqIntegrityClass
	}
	var liteErr sqliteError
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqliteConstraint
	}
	// modernc reports some constraint failures only through the message.
	return strings.Contains(err.Error(), "constraint failed")
}

// Classify turns driver constraint errors into *IntegrityError and values the
// database cannot hold into *ValidationError. Everything else is left alone.
func Classify(entity string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ie *IntegrityError
		ve *ValidationError
	)
	if errors.As(err, &ie) || errors.As(err, &ve) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code.Class()) == pqDataClass {
		return &ValidationError{Entity: entity, Field: pqErr.Column, Msg: pqErr.Message, Err: err}
	}
	if IsConstraintViolation(err) {
		return &IntegrityError{Entity: entity, Err: err}
	}
	return err
}
