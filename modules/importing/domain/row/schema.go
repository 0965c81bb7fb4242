package row

// Kind is the declared scalar type of a column.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

// FKRule declares that a column references a catalog table. The conflict
// detector builds a lookup index from Table and matches raw cell values
// against LabelFields; resolved cells carry the value of IDField.
type FKRule struct {
	Table       string
	IDField     string
	LabelFields []string
	// AllowCreate permits inline creation of the referenced entity when no
	// match exists. Reserved for low-risk secondary catalogs (units,
	// providers, categories) -- never for anything with financial meaning.
	AllowCreate bool
	// Optional references are allowed to silently miss: importers resolve
	// them inline and fall back to NULL with a warning instead of a conflict.
	Optional bool
}

type Column struct {
	Key      string
	Label    string
	Required bool
	Kind     Kind
	FK       *FKRule
}

// Schema is the static per-entity-family column declaration shared by the
// conflict detector and the family's importer.
type Schema struct {
	Family  string
	Columns []Column
}

func (s Schema) Column(key string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// FKColumns returns columns carrying a foreign-key rule, in declaration
// order. Optional (soft-resolved) columns are excluded unless includeOptional
// is set: they never produce conflicts, only importer warnings.
func (s Schema) FKColumns(includeOptional bool) []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.FK == nil {
			continue
		}
		if c.FK.Optional && !includeOptional {
			continue
		}
		out = append(out, c)
	}
	return out
}
