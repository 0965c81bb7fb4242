package services

import (
	"context"

	"github.com/obralink/importkit/modules/importing/domain/conflict"
	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/modules/importing/services/importers"
)

// PatternStore reads and appends learned matcher patterns.
type PatternStore interface {
	ForFamily(ctx context.Context, entityType string) (map[string]matching.Patterns, error)
	Save(ctx context.Context, entityType, columnKey, rawValue string, targetID int64) error
}

// ConflictService runs the detection pass: for every non-optional FK column
// of a family's schema it snapshots the referenced catalog, matches each
// distinct raw value through the cascade, and reports what matched and what
// needs an operator decision.
type ConflictService struct {
	lookups  importers.LookupStore
	patterns PatternStore
}

func NewConflictService(lookups importers.LookupStore, patterns PatternStore) *ConflictService {
	return &ConflictService{lookups: lookups, patterns: patterns}
}

// Detect matches per distinct value, not per row: a thousand rows naming the
// same three wallets cost three matcher runs. Every catalog snapshot must
// succeed before any verdict is returned; a partial lookup index would turn
// missing catalogs into bogus "missing value" reports.
func (s *ConflictService) Detect(ctx context.Context, schema row.Schema, rows []row.Row) ([]conflict.Conflict, error) {
	learned, err := s.patterns.ForFamily(ctx, schema.Family)
	if err != nil {
		return nil, err
	}

	var conflicts []conflict.Conflict
	for _, col := range schema.FKColumns(false) {
		ix, err := s.lookups.Index(ctx, col.FK)
		if err != nil {
			return nil, err
		}

		c := conflict.Conflict{
			ColumnKey:   col.Key,
			ColumnLabel: col.Label,
			Table:       col.FK.Table,
			Matched:     map[string]matching.Match{},
			Options:     ix.Choices(),
			AllowCreate: col.FK.AllowCreate,
		}
		seen := map[string]struct{}{}
		for _, r := range rows {
			if _, resolved := r.ID(col.Key); resolved {
				continue
			}
			raw := r.String(col.Key)
			if raw == "" {
				continue
			}
			key := matching.Normalize(raw)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if m, ok := matching.Find(raw, ix, learned[col.Key]); ok {
				c.Matched[key] = m
			} else {
				c.Missing = append(c.Missing, raw)
			}
		}
		if len(seen) > 0 {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}
