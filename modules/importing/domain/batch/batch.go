package batch

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusReverted  Status = "reverted"
)

// Batch is the audit and rollback unit grouping every row inserted by one
// import run. Created before insertion; immutable except for status; never
// hard-deleted, never reused across runs. RowCount is the declared upload
// size and is advisory only -- the actual inserted count may be lower.
type Batch struct {
	id         uuid.UUID
	tenantID   uuid.UUID
	entityType string
	rowCount   int
	status     Status
	createdBy  uint
	createdAt  time.Time
}

type Option func(*Batch)

func WithID(id uuid.UUID) Option {
	return func(b *Batch) {
		b.id = id
	}
}

func WithTenantID(tenantID uuid.UUID) Option {
	return func(b *Batch) {
		b.tenantID = tenantID
	}
}

func WithStatus(status Status) Option {
	return func(b *Batch) {
		b.status = status
	}
}

func WithCreatedBy(userID uint) Option {
	return func(b *Batch) {
		b.createdBy = userID
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(b *Batch) {
		b.createdAt = createdAt
	}
}

func New(entityType string, rowCount int, opts ...Option) *Batch {
	b := &Batch{
		id:         uuid.New(),
		entityType: entityType,
		rowCount:   rowCount,
		status:     StatusPending,
		createdAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Batch) ID() uuid.UUID {
	return b.id
}

func (b *Batch) TenantID() uuid.UUID {
	return b.tenantID
}

func (b *Batch) EntityType() string {
	return b.entityType
}

func (b *Batch) RowCount() int {
	return b.rowCount
}

func (b *Batch) Status() Status {
	return b.status
}

func (b *Batch) CreatedBy() uint {
	return b.createdBy
}

func (b *Batch) CreatedAt() time.Time {
	return b.createdAt
}
