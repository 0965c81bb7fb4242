package matching

// Entry is one catalog record offered to the index: its id plus every label
// field it can be matched by (name first, then symbol/code aliases).
type Entry struct {
	ID     int64
	Labels []string
}

// Choice is a selectable catalog option surfaced to the resolution UI.
type Choice struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Index is the per-run, in-memory label->id map for one referenced catalog.
// It is built fresh from a snapshot query each run and discarded afterwards;
// catalogs mutate between imports, so indices are never cached.
type Index struct {
	keys      []string
	ids       map[string]int64
	labelByID map[int64]string
	order     []int64
}

// NewIndex folds every label field into one normalized namespace. Label
// fields are added field-major so that, on collision, an earlier label field
// of any record beats a later label field of any other; within one field,
// first-encountered record wins. Insertion order is retained so fuzzy tie
// observation is deterministic.
func NewIndex(entries []Entry) *Index {
	ix := &Index{
		ids:       make(map[string]int64, len(entries)),
		labelByID: make(map[int64]string, len(entries)),
	}
	maxFields := 0
	for _, e := range entries {
		if len(e.Labels) > maxFields {
			maxFields = len(e.Labels)
		}
	}
	for _, e := range entries {
		if _, seen := ix.labelByID[e.ID]; seen {
			continue
		}
		label := ""
		if len(e.Labels) > 0 {
			label = e.Labels[0]
		}
		ix.labelByID[e.ID] = label
		ix.order = append(ix.order, e.ID)
	}
	for field := 0; field < maxFields; field++ {
		for _, e := range entries {
			if field >= len(e.Labels) {
				continue
			}
			key := Normalize(e.Labels[field])
			if key == "" {
				continue
			}
			if _, exists := ix.ids[key]; exists {
				continue
			}
			ix.ids[key] = e.ID
			ix.keys = append(ix.keys, key)
		}
	}
	return ix
}

func (ix *Index) Len() int {
	return len(ix.order)
}

func (ix *Index) Empty() bool {
	return len(ix.order) == 0
}

// Lookup resolves an already-normalized label.
func (ix *Index) Lookup(normLabel string) (int64, bool) {
	id, ok := ix.ids[normLabel]
	return id, ok
}

// LabelOf returns the primary (first) label of a catalog id, for
// human-readable resolution choices.
func (ix *Index) LabelOf(id int64) (string, bool) {
	label, ok := ix.labelByID[id]
	return label, ok
}

// Choices lists every indexed record as a selectable option, in snapshot
// order.
func (ix *Index) Choices() []Choice {
	out := make([]Choice, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, Choice{ID: id, Label: ix.labelByID[id]})
	}
	return out
}
