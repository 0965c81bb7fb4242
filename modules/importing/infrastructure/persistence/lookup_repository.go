package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

// LookupRepository builds the per-run lookup indices from catalog snapshot
// queries. Indices are never cached across runs: catalogs mutate between
// imports. A fetch failure degrades to an empty index plus the error itself,
// so every value would be reported as missing rather than silently matched
// wrong -- callers must surface the error, not swallow it.
type LookupRepository struct{}

func NewLookupRepository() *LookupRepository {
	return &LookupRepository{}
}

func (r *LookupRepository) Index(ctx context.Context, rule *row.FKRule) (*matching.Index, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return matching.NewIndex(nil), errors.Wrap(err, "failed to get transaction")
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return matching.NewIndex(nil), err
	}

	// Identifiers come from static schema declarations, never from user
	// input.
	query := fmt.Sprintf(
		`SELECT %s, %s FROM %s WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY %s`,
		rule.IDField,
		strings.Join(rule.LabelFields, ", "),
		rule.Table,
		rule.IDField,
	)

	rows, err := tx.Query(ctx, query, tenantID.String())
	if err != nil {
		return matching.NewIndex(nil), errors.Wrapf(err, "failed to snapshot %s", rule.Table)
	}
	defer rows.Close()

	var entries []matching.Entry
	for rows.Next() {
		var id int64
		labels := make([]sql.NullString, len(rule.LabelFields))
		dest := make([]any, 0, len(labels)+1)
		dest = append(dest, &id)
		for i := range labels {
			dest = append(dest, &labels[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return matching.NewIndex(nil), errors.Wrapf(err, "failed to scan %s row", rule.Table)
		}
		e := matching.Entry{ID: id}
		for _, l := range labels {
			e.Labels = append(e.Labels, l.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return matching.NewIndex(nil), errors.Wrap(err, "row iteration error")
	}
	return matching.NewIndex(entries), nil
}
