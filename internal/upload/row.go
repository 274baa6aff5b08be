package upload

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap/zapcore"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
)

// Row is one uploaded record: field name to raw cell value.
type Row map[string]string

// Keys returns the field names in a stable order.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalLogObject lets rows be logged as structured fields.
func (r Row) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, k := range r.Keys() {
		enc.AddString(k, r[k])
	}
	return nil
}

// Kind names the row failures that are logged and skipped.
type Kind string

const (
	KindMissingReference Kind = "missing_reference"
	KindIntegrity        Kind = "integrity"
	KindValidation       Kind = "validation"
)

// kindOf reports which skippable kind err is. Anything else aborts the batch.
func kindOf(err error) (Kind, bool) {
	var (
		missing    *appErrors.MissingReferenceError
		integrity  *appErrors.IntegrityError
		validation *appErrors.ValidationError
	)
	switch {
	case errors.As(err, &missing):
		return KindMissingReference, true
	case errors.As(err, &integrity):
		return KindIntegrity, true
	case errors.As(err, &validation):
		return KindValidation, true
	}
	return "", false
}

// Record is a row and the file line it starts on. Err is set when the line
// could not be read as a row; the reconciler skips such records.
type Record struct {
	Line int
	Row  Row
	Err  error
}

// Records numbers rows from 1, for rows that did not come from a file.
func Records(rows []Row) []Record {
	recs := make([]Record, len(rows))
	for i, row := range rows {
		recs[i] = Record{Line: i + 1, Row: row}
	}
	return recs
}

// RowError is a skipped row. Line is the file line of the row, or its
// 1-based position when the rows were not read from a file.
type RowError struct {
	Line int
	Kind Kind
	Row  Row
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Kind, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result lists what a batch did, in input order.
type Result[T any] struct {
	Created []T
	Updated []T
	Skipped []RowError
}
