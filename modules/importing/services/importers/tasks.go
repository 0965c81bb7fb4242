package importers

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

var tasksSchema = row.Schema{
	Family: "tasks",
	Columns: []row.Column{
		{Key: "name", Label: "Tarea", Required: true},
		{Key: "division", Label: "Rubro de obra", Required: true, FK: &row.FKRule{
			Table:       "divisions",
			IDField:     "id",
			LabelFields: []string{"name", "code"},
		}},
		{Key: "unit", Label: "Unidad", FK: &row.FKRule{
			Table:       "units",
			IDField:     "id",
			LabelFields: []string{"name"},
			Optional:    true,
		}},
	},
}

// TaskImporter writes construction tasks. The division is a hard reference;
// the unit is resolved inline and degrades to NULL with a warning when the
// sheet names a unit nobody registered.
type TaskImporter struct {
	catalogs CatalogStore
	lookups  LookupStore
}

func NewTaskImporter(catalogs CatalogStore, lookups LookupStore) *TaskImporter {
	return &TaskImporter{catalogs: catalogs, lookups: lookups}
}

func (im *TaskImporter) Family() string     { return tasksSchema.Family }
func (im *TaskImporter) Schema() row.Schema { return tasksSchema }
func (im *TaskImporter) Tables() []string   { return []string{"tasks"} }

func (im *TaskImporter) Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{BatchID: batchID}

	existingNames, err := im.catalogs.ExistingNames(ctx, "tasks", "name", matching.Normalize)
	if err != nil {
		return nil, err
	}
	unitCol, _ := tasksSchema.Column("unit")
	unitIdx, err := im.lookups.Index(ctx, unitCol.FK)
	if err != nil {
		return nil, err
	}

	columns := []string{"tenant_id", "import_batch_id", "name", "division_id", "unit_id"}
	var records [][]any
	batchNames := map[string]int{}

	for _, r := range rows {
		name := r.String("name")
		if name == "" {
			result.fail(r.Line, "missing task name")
			continue
		}
		nameKey := matching.Normalize(name)
		if _, ok := existingNames[nameKey]; ok {
			result.fail(r.Line, "task %q already exists", name)
			continue
		}
		if line, ok := batchNames[nameKey]; ok {
			result.fail(r.Line, "task %q duplicates row %d", name, line)
			continue
		}
		divisionID, err := requireFK(r, "division", "division")
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		unitID, hasUnit := softResolve(r, unitCol, unitIdx, result)

		batchNames[nameKey] = r.Line
		records = append(records, []any{
			tenantID.String(),
			batchID.String(),
			name,
			divisionID,
			nullableID(unitID, hasUnit),
		})
	}

	if len(records) > 0 {
		n, err := im.catalogs.BulkInsert(ctx, "tasks", columns, records)
		if err != nil {
			return nil, err
		}
		result.SuccessCount = int(n)
	}
	return result, nil
}
