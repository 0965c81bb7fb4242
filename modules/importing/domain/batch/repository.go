package batch

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	EntityType string
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	List(ctx context.Context, params *FindParams) ([]*Batch, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	// Revert flips the batch to reverted and tombstones every row of the
	// given table carrying the batch id, both inside one transaction so a
	// half-reverted batch can never be observed. Idempotent per call; a
	// batch spanning several tables takes one call per table. Returns the
	// number of rows tombstoned by this call.
	Revert(ctx context.Context, id uuid.UUID, table string) (int64, error)
}
