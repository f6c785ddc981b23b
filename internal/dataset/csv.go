package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// Table is a CSV file held as strings: a header and equally long records.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV reads a header line followed by records. Cells are trimmed.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("ReadCSV", "file has no header")
	}
	t := &Table{Header: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Header[i] = strings.TrimSpace(h)
	}
	seen := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		if seen[h] {
			return nil, errors.NewValidationError("header", "duplicate column", h)
		}
		seen[h] = true
	}
	t.Rows = records[1:]
	for _, row := range t.Rows {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}
	return t, nil
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return t, nil
}

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// IsMissing reports whether a cell holds no value.
func IsMissing(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}
