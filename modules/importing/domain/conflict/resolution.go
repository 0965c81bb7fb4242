package conflict

import (
	"github.com/obralink/importkit/modules/importing/domain/matching"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionMap    Action = "map"
	ActionIgnore Action = "ignore"
)

// Resolution is one operator decision for one ambiguous raw value. TargetID
// is required for "map"; for "create" it is filled in once the missing
// entity has been materialized, before the rewrite pass runs.
type Resolution struct {
	Action   Action `json:"action"`
	TargetID int64  `json:"targetId,omitempty"`
}

// Set holds resolutions keyed by column key and raw value,
// case/diacritic-insensitive on the value side.
type Set map[string]map[string]Resolution

func (s Set) Get(columnKey, raw string) (Resolution, bool) {
	col, ok := s[columnKey]
	if !ok {
		return Resolution{}, false
	}
	r, ok := col[matching.Normalize(raw)]
	return r, ok
}

func (s Set) Put(columnKey, raw string, r Resolution) {
	col, ok := s[columnKey]
	if !ok {
		col = map[string]Resolution{}
		s[columnKey] = col
	}
	col[matching.Normalize(raw)] = r
}

// ParseSet normalizes an externally supplied resolution map (raw values as
// the UI captured them) into lookup form.
func ParseSet(in map[string]map[string]Resolution) Set {
	out := Set{}
	for columnKey, values := range in {
		for raw, r := range values {
			out.Put(columnKey, raw, r)
		}
	}
	return out
}
