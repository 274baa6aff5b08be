package upload

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
)

var ErrNoHeader = errors.New("csv has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV decodes a CSV whose first line names the fields. Cells are
// trimmed, blank lines are dropped and short records are padded with
// blanks. A record with non-blank cells beyond the header is kept with Err
// set so the batch can skip it.
func ReadCSV(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrNoHeader
	}

	recs := []Record{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rec := Record{Line: line, Row: make(Row, len(header))}
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				rec.Row[name] = strings.TrimSpace(record[i])
			} else {
				rec.Row[name] = ""
			}
		}
		if !blank(record[min(len(header), len(record)):]) {
			rec.Err = &appErrors.ValidationError{
				Entity: "CSV row",
				Msg:    fmt.Sprintf("%d cells but the header names %d", len(record), len(header)),
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
