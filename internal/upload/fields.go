package upload

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

// field reads and writes one uploadable attribute of T as text. get
// returns the canonical form so that "1" and "01" compare equal after set.
type field[T any] struct {
	get func(*T) string
	set func(*T, string) error
}

type fieldSet[T any] map[string]field[T]

// apply assigns every row value not listed in skip and returns the names of
// the fields whose canonical value changed.
func (fs fieldSet[T]) apply(entity string, obj *T, row Row, skip ...string) ([]string, error) {
	var changed []string
outer:
	for _, name := range row.Keys() {
		for _, s := range skip {
			if s == name {
				continue outer
			}
		}
		f, ok := fs[name]
		if !ok {
			return nil, appErrors.NewValidation(entity, name, "unknown field")
		}
		before := f.get(obj)
		if err := f.set(obj, row[name]); err != nil {
			return nil, appErrors.NewValidation(entity, name, err.Error())
		}
		if f.get(obj) != before {
			changed = append(changed, name)
		}
	}
	return changed, nil
}

func stringField[T any](ptr func(*T) *string) field[T] {
	return field[T]{
		get: func(o *T) string { return *ptr(o) },
		set: func(o *T, v string) error { *ptr(o) = v; return nil },
	}
}

// Typed fields leave the current value alone when the cell is blank, so
// defaults survive short CSVs.

func intField[T any](ptr func(*T) *int) field[T] {
	return field[T]{
		get: func(o *T) string { return strconv.Itoa(*ptr(o)) },
		set: func(o *T, v string) error {
			if v == "" {
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return errNotInteger
			}
			*ptr(o) = n
			return nil
		},
	}
}

func boolField[T any](ptr func(*T) *bool) field[T] {
	return field[T]{
		get: func(o *T) string { return strconv.FormatBool(*ptr(o)) },
		set: func(o *T, v string) error {
			if v == "" {
				return nil
			}
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			*ptr(o) = b
			return nil
		},
	}
}

func dateField[T any](ptr func(*T) *time.Time) field[T] {
	return field[T]{
		get: func(o *T) string {
			if ptr(o).IsZero() {
				return ""
			}
			return ptr(o).Format(model.DateLayout)
		},
		set: func(o *T, v string) error {
			if v == "" {
				return nil
			}
			d, err := parseDate(v)
			if err != nil {
				return err
			}
			*ptr(o) = d
			return nil
		},
	}
}

// nullDecimalField clears the value on a blank cell, since blank is meaningful
// for optional amounts.
func nullDecimalField[T any](ptr func(*T) *decimal.NullDecimal) field[T] {
	return field[T]{
		get: func(o *T) string {
			d := ptr(o)
			if !d.Valid {
				return ""
			}
			return d.Decimal.StringFixed(2)
		},
		set: func(o *T, v string) error {
			if v == "" {
				*ptr(o) = decimal.NullDecimal{}
				return nil
			}
			d, err := parseAmount(v)
			if err != nil {
				return err
			}
			*ptr(o) = decimal.NewNullDecimal(d)
			return nil
		},
	}
}

type parseError string

func (e parseError) Error() string { return string(e) }

const (
	errNotInteger = parseError("must be a whole number")
	errNotBool    = parseError("must be true or false")
	errNotDate    = parseError("must be a date as YYYY-MM-DD or DD/MM/YYYY")
	errNotAmount  = parseError("must be an amount")
)

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "t", "true", "y", "yes":
		return true, nil
	case "0", "f", "false", "n", "no":
		return false, nil
	}
	return false, errNotBool
}

var dateLayouts = []string{model.DateLayout, "02/01/2006", "2/1/2006"}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d, nil
		}
	}
	return time.Time{}, errNotDate
}

// parseAmount accepts "50", "50.5" and "$1,200.00".
func parseAmount(v string) (decimal.Decimal, error) {
	v = strings.ReplaceAll(strings.TrimPrefix(v, "$"), ",", "")
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, errNotAmount
	}
	return d.Round(2), nil
}
