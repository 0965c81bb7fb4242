package importers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
)

// RowError is one per-line failure. The row keeps its original upload line
// number so operators can find it in the source file.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is the outcome of one import run. Every input row is accounted for:
// it either succeeded, failed with a RowError, or was ignored by an operator
// resolution. Warnings carry non-fatal notes (fallback dates, soft-missed
// references, auto-created catalog entries).
type Result struct {
	BatchID      uuid.UUID  `json:"batchId"`
	SuccessCount int        `json:"successCount"`
	IgnoredCount int        `json:"ignoredCount"`
	Errors       []RowError `json:"errors,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
}

func (r *Result) fail(line int, format string, args ...any) {
	r.Errors = append(r.Errors, RowError{Row: line, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CatalogStore is the write side importers persist through. Implemented by
// persistence.CatalogRepository; stubbed in tests.
type CatalogStore interface {
	ExistingNames(ctx context.Context, table, nameField string, normalize func(string) string) (map[string]int64, error)
	GetOrCreateByName(ctx context.Context, table, nameField, name string, extra map[string]any) (int64, error)
	BulkInsert(ctx context.Context, table string, columns []string, records [][]any) (int64, error)
	BulkInsertReturning(ctx context.Context, table string, columns []string, records [][]any) ([]int64, error)
}

// LookupStore builds catalog snapshot indices for inline soft resolution of
// optional references.
type LookupStore interface {
	Index(ctx context.Context, rule *row.FKRule) (*matching.Index, error)
}

// Importer turns resolved rows of one entity family into catalog records.
// Import runs inside the batch transaction; a returned error aborts and rolls
// back the whole batch, while per-row problems go into Result.Errors and do
// not block sibling rows.
type Importer interface {
	Family() string
	Schema() row.Schema
	// Tables lists every table this family writes batch rows into, children
	// before parents, for the per-table revert pass.
	Tables() []string
	Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error)
}

// requireFK reads a cell that must already carry a resolved catalog id.
// Non-empty raw text at this point means the reference survived detection and
// resolution unmatched, which is a per-row error.
func requireFK(r row.Row, key, what string) (int64, error) {
	if id, ok := r.ID(key); ok {
		return id, nil
	}
	if raw := r.String(key); raw != "" {
		return 0, fmt.Errorf("unresolved %s %q", what, raw)
	}
	return 0, fmt.Errorf("missing %s", what)
}

// optionalFK is requireFK for columns allowed to be empty. Returns valid=false
// on an empty cell, an error on unresolved text.
func optionalFK(r row.Row, key, what string) (int64, bool, error) {
	if id, ok := r.ID(key); ok {
		return id, true, nil
	}
	if raw := r.String(key); raw != "" {
		return 0, false, fmt.Errorf("unresolved %s %q", what, raw)
	}
	return 0, false, nil
}

// parseAmount accepts spreadsheet numbers and locale-formatted strings.
// "1.234,56" and "1,234.56" both parse; whichever separator comes last is the
// decimal mark.
func parseAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("empty amount")
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, fmt.Errorf("empty amount")
		}
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else if lastComma >= 0 {
			s = strings.ReplaceAll(s, ",", "")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q", n)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("invalid amount %v", v)
	}
}

// canonicalCurrency maps whatever the sheet says to an ISO 4217 code. Unknown
// codes are a hard failure: guessing a currency corrupts money.
func canonicalCurrency(raw, fallback string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || s == "$" {
		s = fallback
	}
	if c := money.GetCurrency(s); c != nil {
		return c.Code, nil
	}
	return "", fmt.Errorf("unknown currency %q", raw)
}

// softResolve matches an optional reference inline against a catalog index.
// A miss is never fatal: the column stores NULL and the run collects a
// warning. ok=false means the cell was empty.
func softResolve(r row.Row, col row.Column, ix *matching.Index, result *Result) (int64, bool) {
	if id, hit := r.ID(col.Key); hit {
		return id, true
	}
	raw := r.String(col.Key)
	if raw == "" {
		return 0, false
	}
	if m, hit := matching.Find(raw, ix, nil); hit {
		return m.ID, true
	}
	result.warn("row %d: %s %q not found, left empty", r.Line, col.Label, raw)
	return 0, false
}

func nullableID(id int64, valid bool) any {
	if !valid {
		return nil
	}
	return id
}
