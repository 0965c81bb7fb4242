package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/batch"
	"github.com/obralink/importkit/modules/importing/infrastructure/persistence/models"
	"github.com/obralink/importkit/pkg/composables"
)

var (
	ErrBatchNotFound = fmt.Errorf("import batch not found")
)

const (
	batchFindQuery = `
		SELECT id, tenant_id, entity_type, row_count, status, created_by, created_at
		FROM import_batches`

	batchInsertQuery = `
		INSERT INTO import_batches (id, tenant_id, entity_type, row_count, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

type BatchRepository struct{}

func NewBatchRepository() batch.Repository {
	return &BatchRepository{}
}

func (r *BatchRepository) Create(ctx context.Context, b *batch.Batch) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	var createdBy sql.NullInt64
	if b.CreatedBy() != 0 {
		createdBy = sql.NullInt64{Int64: int64(b.CreatedBy()), Valid: true}
	}
	if _, err := tx.Exec(
		ctx,
		batchInsertQuery,
		b.ID().String(),
		b.TenantID().String(),
		b.EntityType(),
		b.RowCount(),
		string(b.Status()),
		createdBy,
		b.CreatedAt(),
	); err != nil {
		return errors.Wrap(err, "failed to insert import batch")
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	batches, err := r.queryBatches(ctx, batchFindQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, ErrBatchNotFound
	}
	return batches[0], nil
}

func (r *BatchRepository) List(ctx context.Context, params *batch.FindParams) ([]*batch.Batch, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	query := batchFindQuery + " WHERE tenant_id = $1"
	args := []any{tenantID.String()}
	if params != nil && params.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", len(args)+1)
		args = append(args, params.EntityType)
	}
	query += " ORDER BY created_at DESC"
	if params != nil && params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, params.Limit, params.Offset)
	}
	return r.queryBatches(ctx, query, args...)
}

func (r *BatchRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(
		ctx,
		`UPDATE import_batches SET status = $1 WHERE id = $2 AND status = $3`,
		string(batch.StatusCompleted),
		id.String(),
		string(batch.StatusPending),
	)
	if err != nil {
		return errors.Wrap(err, "failed to complete import batch")
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (r *BatchRepository) Revert(ctx context.Context, id uuid.UUID, table string) (int64, error) {
	var affected int64
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(
			txCtx,
			`UPDATE import_batches SET status = $1 WHERE id = $2`,
			string(batch.StatusReverted),
			id.String(),
		)
		if err != nil {
			return errors.Wrap(err, "failed to mark batch reverted")
		}
		if tag.RowsAffected() == 0 {
			return ErrBatchNotFound
		}
		// table comes from the static entity-family registry, never from
		// user input.
		tag, err = tx.Exec(
			txCtx,
			fmt.Sprintf(`UPDATE %s SET deleted_at = now() WHERE import_batch_id = $1 AND deleted_at IS NULL`, table),
			id.String(),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to tombstone %s rows", table)
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *BatchRepository) queryBatches(ctx context.Context, query string, args ...any) ([]*batch.Batch, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var batches []*batch.Batch
	for rows.Next() {
		var m models.ImportBatch
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.EntityType,
			&m.RowCount,
			&m.Status,
			&m.CreatedBy,
			&m.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan import batch row")
		}
		batches = append(batches, toDomainBatch(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return batches, nil
}

func toDomainBatch(m *models.ImportBatch) *batch.Batch {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		id = uuid.Nil
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		tenantID = uuid.Nil
	}
	opts := []batch.Option{
		batch.WithID(id),
		batch.WithTenantID(tenantID),
		batch.WithStatus(batch.Status(m.Status)),
		batch.WithCreatedAt(m.CreatedAt),
	}
	if m.CreatedBy.Valid {
		opts = append(opts, batch.WithCreatedBy(uint(m.CreatedBy.Int64)))
	}
	return batch.New(m.EntityType, m.RowCount, opts...)
}
