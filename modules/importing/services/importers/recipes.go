package importers

import (
	"context"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

var recipesSchema = row.Schema{
	Family: "recipes",
	Columns: []row.Column{
		{Key: "task", Label: "Tarea", Required: true, FK: &row.FKRule{
			Table:       "tasks",
			IDField:     "id",
			LabelFields: []string{"name"},
		}},
		{Key: "material", Label: "Material", FK: &row.FKRule{
			Table:       "materials",
			IDField:     "id",
			LabelFields: []string{"name", "code"},
			Optional:    true,
		}},
		{Key: "quantity", Label: "Cantidad", Required: true, Kind: row.KindNumber},
	},
}

// RecipeImporter writes per-task material recipes, typically derived by an
// assistant from historical consumption. One recipe header per distinct task
// in the batch; each row becomes a line item. Material references resolve
// inline and degrade to NULL with a warning, so a recipe can land before its
// materials catalog is complete.
type RecipeImporter struct {
	catalogs CatalogStore
	lookups  LookupStore
}

func NewRecipeImporter(catalogs CatalogStore, lookups LookupStore) *RecipeImporter {
	return &RecipeImporter{catalogs: catalogs, lookups: lookups}
}

func (im *RecipeImporter) Family() string     { return recipesSchema.Family }
func (im *RecipeImporter) Schema() row.Schema { return recipesSchema }
func (im *RecipeImporter) Tables() []string   { return []string{"task_recipe_items", "task_recipes"} }

func (im *RecipeImporter) Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{BatchID: batchID}

	materialCol, _ := recipesSchema.Column("material")
	materialIdx, err := im.lookups.Index(ctx, materialCol.FK)
	if err != nil {
		return nil, err
	}

	type item struct {
		taskID     int64
		materialID any
		quantity   any
	}
	var items []item
	taskOrder := []int64{}
	seenTasks := map[int64]struct{}{}

	for _, r := range rows {
		taskID, err := requireFK(r, "task", "task")
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		quantity, err := parseAmount(r.Raw("quantity"))
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		if !quantity.IsPositive() {
			result.fail(r.Line, "quantity must be positive, got %s", quantity.String())
			continue
		}
		materialID, hasMaterial := softResolve(r, materialCol, materialIdx, result)

		if _, ok := seenTasks[taskID]; !ok {
			seenTasks[taskID] = struct{}{}
			taskOrder = append(taskOrder, taskID)
		}
		items = append(items, item{
			taskID:     taskID,
			materialID: nullableID(materialID, hasMaterial),
			quantity:   quantity,
		})
	}

	if len(items) == 0 {
		return result, nil
	}

	recipeColumns := []string{"tenant_id", "import_batch_id", "task_id"}
	recipeRecords := make([][]any, 0, len(taskOrder))
	for _, taskID := range taskOrder {
		recipeRecords = append(recipeRecords, []any{tenantID.String(), batchID.String(), taskID})
	}
	recipeIDs, err := im.catalogs.BulkInsertReturning(ctx, "task_recipes", recipeColumns, recipeRecords)
	if err != nil {
		return nil, err
	}
	recipeByTask := make(map[int64]int64, len(taskOrder))
	for i, taskID := range taskOrder {
		recipeByTask[taskID] = recipeIDs[i]
	}

	itemColumns := []string{"tenant_id", "import_batch_id", "recipe_id", "material_id", "quantity"}
	itemRecords := make([][]any, 0, len(items))
	for _, it := range items {
		itemRecords = append(itemRecords, []any{
			tenantID.String(),
			batchID.String(),
			recipeByTask[it.taskID],
			it.materialID,
			it.quantity,
		})
	}
	n, err := im.catalogs.BulkInsert(ctx, "task_recipe_items", itemColumns, itemRecords)
	if err != nil {
		return nil, err
	}
	result.SuccessCount = int(n)
	return result, nil
}
