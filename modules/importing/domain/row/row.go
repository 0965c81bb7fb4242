package row

import (
	"strconv"
	"strings"
	"time"
)

// Row is one imported record prior to persistence. Cells hold raw scalar
// values as produced by the upstream parser (string, float64, time.Time) or,
// after resolution, canonical catalog ids (int64). Line is the 1-based data
// row number in the original upload, used for user-facing error reporting.
type Row struct {
	Line  int
	Cells map[string]any
}

func New(line int, cells map[string]any) Row {
	if cells == nil {
		cells = map[string]any{}
	}
	return Row{Line: line, Cells: cells}
}

func (r Row) Raw(key string) any {
	return r.Cells[key]
}

func (r *Row) Set(key string, v any) {
	r.Cells[key] = v
}

// String returns the cell rendered as a trimmed string, or "" when the cell
// is absent or nil. Numbers are rendered without a trailing ".0" so that
// spreadsheet-typed codes compare cleanly against catalog labels.
func (r Row) String(key string) string {
	switch v := r.Cells[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return ""
	}
}

// ID returns the canonical catalog id stored in the cell, if resolution has
// already replaced the raw label.
func (r Row) ID(key string) (int64, bool) {
	switch v := r.Cells[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func (r Row) IsEmpty(key string) bool {
	if _, ok := r.ID(key); ok {
		return false
	}
	return r.String(key) == ""
}
