package upload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "yes", "t"} {
		got, err := parseBool(v)
		require.NoError(t, err, v)
		assert.True(t, got, v)
	}
	for _, v := range []string{"0", "False", "no"} {
		got, err := parseBool(v)
		require.NoError(t, err, v)
		assert.False(t, got, v)
	}
	_, err := parseBool("maybe")
	assert.ErrorIs(t, err, errNotBool)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, v := range []string{"2024-03-05", "05/03/2024", "5/3/2024"} {
		got, err := parseDate(v)
		require.NoError(t, err, v)
		assert.True(t, want.Equal(got), v)
	}
	_, err := parseDate("March 5")
	assert.ErrorIs(t, err, errNotDate)
}

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("$1,200.456")
	require.NoError(t, err)
	assert.Equal(t, "1200.46", got.StringFixed(2))

	_, err = parseAmount("lots")
	assert.ErrorIs(t, err, errNotAmount)
}

type widget struct {
	Name  string
	Count int
}

func TestFieldSetApply(t *testing.T) {
	fs := fieldSet[widget]{
		"name":  stringField(func(w *widget) *string { return &w.Name }),
		"count": intField(func(w *widget) *int { return &w.Count }),
	}
	w := &widget{Name: "a", Count: 3}

	changed, err := fs.apply("Widget", w, Row{"key": "k", "name": "b", "count": ""}, "key")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, changed)
	assert.Equal(t, widget{Name: "b", Count: 3}, *w)

	_, err = fs.apply("Widget", w, Row{"count": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "whole number")

	_, err = fs.apply("Widget", w, Row{"colour": "red"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
