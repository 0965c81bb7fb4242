package conflict

import (
	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
)

// Apply rewrites FK-typed cells to canonical catalog ids using the supplied
// resolutions and the matches already carried by each Conflict. Rows whose
// governing value was resolved as "ignore" are marked and removed in a
// second pass so that row indices stay stable while cells are rewritten.
// Cells with neither a match nor a resolution keep their raw value; the
// importer reports them as reference-resolution errors, never guesses.
// Returns the surviving rows and the count of ignored rows.
func Apply(rows []row.Row, conflicts []Conflict, resolutions Set) ([]row.Row, int) {
	ignored := make(map[int]struct{})

	for i := range rows {
		for _, c := range conflicts {
			if _, already := rows[i].ID(c.ColumnKey); already {
				continue
			}
			raw := rows[i].String(c.ColumnKey)
			if raw == "" {
				continue
			}
			if r, ok := resolutions.Get(c.ColumnKey, raw); ok {
				switch r.Action {
				case ActionIgnore:
					ignored[i] = struct{}{}
				case ActionMap, ActionCreate:
					if r.TargetID != 0 {
						rows[i].Set(c.ColumnKey, r.TargetID)
					}
				}
				continue
			}
			if m, ok := c.Matched[matching.Normalize(raw)]; ok {
				rows[i].Set(c.ColumnKey, m.ID)
			}
		}
	}

	return filterIgnoredRows(rows, ignored), len(ignored)
}

func filterIgnoredRows(rows []row.Row, ignored map[int]struct{}) []row.Row {
	if len(ignored) == 0 {
		return rows
	}
	kept := make([]row.Row, 0, len(rows)-len(ignored))
	for i := range rows {
		if _, skip := ignored[i]; skip {
			continue
		}
		kept = append(kept, rows[i])
	}
	return kept
}
