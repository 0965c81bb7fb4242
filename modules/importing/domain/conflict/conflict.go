package conflict

import (
	"github.com/obralink/importkit/modules/importing/domain/matching"
)

// Conflict is one FK-typed column's reconciliation state for the current
// run: which distinct raw values matched an existing catalog entry and which
// are missing and await an operator decision. A Conflict is emitted for
// every FK column that carries at least one non-empty value, even when
// everything matched -- downstream consumers reuse the resolved ids instead
// of re-matching. Ephemeral; lives only between detection and resolution.
type Conflict struct {
	ColumnKey   string                    `json:"columnKey"`
	ColumnLabel string                    `json:"columnLabel"`
	Table       string                    `json:"table"`
	Missing     []string                  `json:"missing"`
	Matched     map[string]matching.Match `json:"matched"`
	Options     []matching.Choice         `json:"options"`
	AllowCreate bool                      `json:"allowCreate"`
}

func (c Conflict) Resolved() bool {
	return len(c.Missing) == 0
}
