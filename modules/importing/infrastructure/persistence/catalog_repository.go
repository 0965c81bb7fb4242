package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/obralink/importkit/pkg/composables"
)

// CatalogRepository is the generic write side for catalog tables (units,
// wallets, categories, providers and so on). Table and column names always
// come from static schema declarations in the importer registry.
type CatalogRepository struct{}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{}
}

// ExistingNames returns the set of names already present in a tenant's
// catalog, keyed by their normalized form so duplicate detection matches the
// same rules the value matcher uses for exact hits.
func (r *CatalogRepository) ExistingNames(ctx context.Context, table, nameField string, normalize func(string) string) (map[string]int64, error) {
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
		fmt.Sprintf(`SELECT id, %s FROM %s WHERE tenant_id = $1 AND deleted_at IS NULL`, nameField, table),
		tenantID.String(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s names", table)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var id int64
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s row", table)
		}
		// nullable fields (codes, tax ids) stay NULL for rows imported
		// without one
		if !name.Valid || name.String == "" {
			continue
		}
		key := name.String
		if normalize != nil {
			key = normalize(name.String)
		}
		if _, ok := out[key]; !ok {
			out[key] = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return out, nil
}

// GetOrCreateByName inserts a catalog record with the given name unless one
// with the same name already exists for the tenant, and returns its id either
// way. Extra columns beyond the name are passed as a map and applied in
// deterministic key order.
func (r *CatalogRepository) GetOrCreateByName(ctx context.Context, table, nameField, name string, extra map[string]any) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(
		ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE tenant_id = $1 AND %s = $2 AND deleted_at IS NULL LIMIT 1`, table, nameField),
		tenantID.String(),
		name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(err, "failed to look up %s by name", table)
	}

	columns := []string{"tenant_id", nameField}
	args := []any{tenantID.String(), name}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		columns = append(columns, k)
		args = append(args, extra[k])
	}
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	err = tx.QueryRow(
		ctx,
		fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
			table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		),
		args...,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to insert into %s", table)
	}
	return id, nil
}

// BulkInsert writes one multi-row INSERT for the given records. Every record
// must carry values for exactly the given columns, in order. Returns the
// number of rows written.
func (r *CatalogRepository) BulkInsert(ctx context.Context, table string, columns []string, records [][]any) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	query, args := buildBulkInsert(table, columns, records, "")
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to bulk insert into %s", table)
	}
	return tag.RowsAffected(), nil
}

// BulkInsertReturning is BulkInsert plus RETURNING id, preserving input
// order, for parent rows whose children need the generated ids.
func (r *CatalogRepository) BulkInsertReturning(ctx context.Context, table string, columns []string, records [][]any) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	query, args := buildBulkInsert(table, columns, records, " RETURNING id")
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to bulk insert into %s", table)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(records))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan returned id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	if len(ids) != len(records) {
		return nil, fmt.Errorf("bulk insert into %s returned %d ids for %d records", table, len(ids), len(records))
	}
	return ids, nil
}

func buildBulkInsert(table string, columns []string, records [][]any, suffix string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*len(columns))
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, v := range rec {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, v)
			sb.WriteString(fmt.Sprintf("$%d", len(args)))
		}
		sb.WriteString(")")
	}
	sb.WriteString(suffix)
	return sb.String(), args
}
