package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/unclebandit/phonathon-backend/internal/db"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// notFound maps sql.ErrNoRows to the typed not-found error.
func notFound(err error, entity, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NewNotFound(entity, key)
	}
	return err
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func countRows(ctx context.Context, q db.DBTX, table string) (int, error) {
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return total, nil
}

func deleteByID(ctx context.Context, q db.DBTX, table, entity string, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return appErrors.Classify(entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound(entity, idKey(id))
	}
	return nil
}

// insertID runs an INSERT ... RETURNING id.
func insertID(ctx context.Context, q db.DBTX, entity, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, query+` RETURNING id`, args...).Scan(&id); err != nil {
		return 0, appErrors.Classify(entity, err)
	}
	return id, nil
}

func execUpdate(ctx context.Context, q db.DBTX, entity string, id int64, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return appErrors.Classify(entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound(entity, idKey(id))
	}
	return nil
}
