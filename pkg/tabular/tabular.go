package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
)

// Table is a parsed upload: one header row plus string-typed data records.
// Cell typing (dates, amounts) happens downstream where the column kind is
// known.
type Table struct {
	Headers []string
	Records [][]string
}

// ReadXLSX parses the first sheet of an Excel file. Empty trailing rows are
// dropped; the first row is the header.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open spreadsheet")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sheet")
	}
	return fromRows(rows)
}

// ReadCSV parses comma-separated data with a header row. Ragged records are
// accepted; short rows read as empty cells.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse csv")
	}
	return fromRows(records)
}

func fromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	t := &Table{Headers: rows[0]}
	for _, rec := range rows[1:] {
		if blank(rec) {
			continue
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// MapRows binds a table to a family schema by header: a header matches a
// column when its normalized form equals the column key or its display
// label. Unmatched headers are ignored; a missing required column is an
// error. Lines are numbered 1-based over data rows.
func MapRows(t *Table, schema row.Schema) ([]row.Row, error) {
	keyByIndex := map[int]string{}
	bound := map[string]bool{}
	for i, h := range t.Headers {
		hk := matching.Normalize(h)
		if hk == "" {
			continue
		}
		for _, col := range schema.Columns {
			if bound[col.Key] {
				continue
			}
			if hk == matching.Normalize(col.Key) || hk == matching.Normalize(col.Label) {
				keyByIndex[i] = col.Key
				bound[col.Key] = true
				break
			}
		}
	}
	for _, col := range schema.Columns {
		if col.Required && !bound[col.Key] {
			return nil, fmt.Errorf("missing required column %q", col.Label)
		}
	}

	out := make([]row.Row, 0, len(t.Records))
	for i, rec := range t.Records {
		cells := map[string]any{}
		for idx, key := range keyByIndex {
			if idx < len(rec) {
				cells[key] = rec[idx]
			}
		}
		out = append(out, row.New(i+1, cells))
	}
	return out, nil
}
