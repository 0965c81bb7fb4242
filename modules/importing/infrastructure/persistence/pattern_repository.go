package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/pkg/composables"
)

// PatternRepository reads and appends the learned-pattern table: prior
// operator resolutions keyed by (column key, exact raw value), reused to
// auto-resolve identical future values.
type PatternRepository struct{}

func NewPatternRepository() *PatternRepository {
	return &PatternRepository{}
}

func (r *PatternRepository) ForFamily(ctx context.Context, entityType string) (map[string]matching.Patterns, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		ctx,
		`SELECT column_key, raw_value, target_id
		 FROM import_match_patterns
		 WHERE tenant_id = $1 AND entity_type = $2`,
		tenantID.String(),
		entityType,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load match patterns")
	}
	defer rows.Close()

	out := map[string]matching.Patterns{}
	for rows.Next() {
		var columnKey, rawValue string
		var targetID int64
		if err := rows.Scan(&columnKey, &rawValue, &targetID); err != nil {
			return nil, errors.Wrap(err, "failed to scan match pattern row")
		}
		col, ok := out[columnKey]
		if !ok {
			col = matching.Patterns{}
			out[columnKey] = col
		}
		col[rawValue] = targetID
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return out, nil
}

func (r *PatternRepository) Save(ctx context.Context, entityType, columnKey, rawValue string, targetID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		ctx,
		`INSERT INTO import_match_patterns (tenant_id, entity_type, column_key, raw_value, target_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, entity_type, column_key, raw_value)
		 DO UPDATE SET target_id = EXCLUDED.target_id`,
		tenantID.String(),
		entityType,
		columnKey,
		rawValue,
		targetID,
	); err != nil {
		return errors.Wrap(err, "failed to save match pattern")
	}
	return nil
}
