package importers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

var materialsSchema = row.Schema{
	Family: "materials",
	Columns: []row.Column{
		{Key: "name", Label: "Material", Required: true},
		{Key: "code", Label: "Código"},
		{Key: "unit", Label: "Unidad", FK: &row.FKRule{
			Table:       "units",
			IDField:     "id",
			LabelFields: []string{"name"},
			AllowCreate: true,
			Optional:    true,
		}},
		{Key: "category", Label: "Rubro", FK: &row.FKRule{
			Table:       "categories",
			IDField:     "id",
			LabelFields: []string{"name"},
			AllowCreate: true,
		}},
		{Key: "provider", Label: "Proveedor", FK: &row.FKRule{
			Table:       "providers",
			IDField:     "id",
			LabelFields: []string{"name"},
			AllowCreate: true,
			Optional:    true,
		}},
		{Key: "price", Label: "Precio", Kind: row.KindNumber},
		{Key: "currency", Label: "Moneda"},
	},
}

// MaterialImporter writes the materials catalog plus an optional price row
// per material. Units and providers are low-risk secondary entities: when a
// referenced name does not exist it is created inline and backfilled into
// every row that named it, instead of failing the rows.
type MaterialImporter struct {
	catalogs        CatalogStore
	lookups         LookupStore
	defaultCurrency string
}

func NewMaterialImporter(catalogs CatalogStore, lookups LookupStore, defaultCurrency string) *MaterialImporter {
	return &MaterialImporter{catalogs: catalogs, lookups: lookups, defaultCurrency: defaultCurrency}
}

func (im *MaterialImporter) Family() string     { return materialsSchema.Family }
func (im *MaterialImporter) Schema() row.Schema { return materialsSchema }
func (im *MaterialImporter) Tables() []string   { return []string{"material_prices", "materials"} }

func (im *MaterialImporter) Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{BatchID: batchID}

	existingNames, err := im.catalogs.ExistingNames(ctx, "materials", "name", matching.Normalize)
	if err != nil {
		return nil, err
	}
	existingCodes, err := im.catalogs.ExistingNames(ctx, "materials", "code", matching.Normalize)
	if err != nil {
		return nil, err
	}

	unitCol, _ := materialsSchema.Column("unit")
	providerCol, _ := materialsSchema.Column("provider")
	unitIDs, err := im.resolveSecondary(ctx, rows, unitCol, result)
	if err != nil {
		return nil, err
	}
	providerIDs, err := im.resolveSecondary(ctx, rows, providerCol, result)
	if err != nil {
		return nil, err
	}

	type pending struct {
		line  int
		price []any
	}
	columns := []string{
		"tenant_id", "import_batch_id", "name", "code",
		"unit_id", "category_id", "provider_id",
	}
	var records [][]any
	var acceptedLines []int
	var prices []pending
	batchNames := map[string]int{}
	batchCodes := map[string]int{}

	for _, r := range rows {
		name := r.String("name")
		if name == "" {
			result.fail(r.Line, "missing material name")
			continue
		}
		nameKey := matching.Normalize(name)
		code := strings.TrimSpace(r.String("code"))
		codeKey := matching.Normalize(code)

		if _, ok := existingNames[nameKey]; ok {
			result.fail(r.Line, "material %q already exists", name)
			continue
		}
		if line, ok := batchNames[nameKey]; ok {
			result.fail(r.Line, "material %q duplicates row %d", name, line)
			continue
		}
		if code != "" {
			if _, ok := existingCodes[codeKey]; ok {
				result.fail(r.Line, "material code %q already exists", code)
				continue
			}
			if line, ok := batchCodes[codeKey]; ok {
				result.fail(r.Line, "material code %q duplicates row %d", code, line)
				continue
			}
		}

		categoryID, hasCategory, err := optionalFK(r, "category", "category")
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		unitID, hasUnit := unitIDs[matching.Normalize(r.String("unit"))]
		providerID, hasProvider := providerIDs[matching.Normalize(r.String("provider"))]

		batchNames[nameKey] = r.Line
		if code != "" {
			batchCodes[codeKey] = r.Line
		}
		var codeValue any
		if code != "" {
			codeValue = code
		}
		records = append(records, []any{
			tenantID.String(),
			batchID.String(),
			name,
			codeValue,
			nullableID(unitID, hasUnit),
			nullableID(categoryID, hasCategory),
			nullableID(providerID, hasProvider),
		})
		acceptedLines = append(acceptedLines, r.Line)

		if !r.IsEmpty("price") {
			price, err := parseAmount(r.Raw("price"))
			if err != nil {
				result.warn("row %d: %v, price skipped", r.Line, err)
				continue
			}
			currency, err := canonicalCurrency(r.String("currency"), im.defaultCurrency)
			if err != nil {
				result.warn("row %d: %v, price skipped", r.Line, err)
				continue
			}
			prices = append(prices, pending{
				line:  r.Line,
				price: []any{tenantID.String(), batchID.String(), price.Abs(), currency},
			})
		}
	}

	if len(records) == 0 {
		return result, nil
	}
	ids, err := im.catalogs.BulkInsertReturning(ctx, "materials", columns, records)
	if err != nil {
		return nil, err
	}
	result.SuccessCount = len(ids)

	if len(prices) > 0 {
		// records and ids are parallel; acceptedLines maps each generated id
		// back to the upload line its price row was collected under.
		lineToID := make(map[int]int64, len(ids))
		for i, line := range acceptedLines {
			lineToID[line] = ids[i]
		}
		priceColumns := []string{"tenant_id", "import_batch_id", "price", "currency", "material_id"}
		priceRecords := make([][]any, 0, len(prices))
		for _, p := range prices {
			priceRecords = append(priceRecords, append(p.price, lineToID[p.line]))
		}
		if _, err := im.catalogs.BulkInsert(ctx, "material_prices", priceColumns, priceRecords); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// resolveSecondary maps every distinct value of an auto-creatable column to a
// catalog id, matching first and creating what is genuinely new. Returns ids
// keyed by normalized raw value for backfill during the row pass.
func (im *MaterialImporter) resolveSecondary(ctx context.Context, rows []row.Row, col row.Column, result *Result) (map[string]int64, error) {
	ix, err := im.lookups.Index(ctx, col.FK)
	if err != nil {
		return nil, err
	}
	out := map[string]int64{}
	var created []string
	for _, r := range rows {
		raw := r.String(col.Key)
		if raw == "" {
			continue
		}
		key := matching.Normalize(raw)
		if _, ok := out[key]; ok {
			continue
		}
		if m, ok := matching.Find(raw, ix, nil); ok {
			out[key] = m.ID
			continue
		}
		id, err := im.catalogs.GetOrCreateByName(ctx, col.FK.Table, "name", strings.TrimSpace(raw), nil)
		if err != nil {
			return nil, err
		}
		out[key] = id
		created = append(created, strings.TrimSpace(raw))
	}
	if len(created) > 0 {
		result.warn("auto-created %d %s: %s", len(created), col.FK.Table, strings.Join(created, ", "))
	}
	return out, nil
}
