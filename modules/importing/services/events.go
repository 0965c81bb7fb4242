package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/services/importers"
)

// LearnedPattern is one operator decision worth remembering: the next run
// that sees the same raw value in the same column resolves it without asking.
type LearnedPattern struct {
	ColumnKey string
	RawValue  string
	TargetID  int64
}

// ImportCompletedEvent fires after the batch transaction commits. Ctx carries
// the pool and tenant of the originating request so subscribers can run their
// own transactions.
type ImportCompletedEvent struct {
	Ctx     context.Context
	Family  string
	BatchID uuid.UUID
	Result  *importers.Result
	Learned []LearnedPattern
}

type BatchRevertedEvent struct {
	Ctx         context.Context
	Family      string
	BatchID     uuid.UUID
	RowsRemoved int64
}
