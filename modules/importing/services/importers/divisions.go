package importers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

var divisionsSchema = row.Schema{
	Family: "divisions",
	Columns: []row.Column{
		{Key: "name", Label: "Rubro de obra", Required: true},
		{Key: "code", Label: "Código"},
	},
}

// DivisionImporter writes work-breakdown divisions. Codes are canonicalized
// to uppercase; names and codes must be unique in the tenant and in the
// batch.
type DivisionImporter struct {
	catalogs CatalogStore
}

func NewDivisionImporter(catalogs CatalogStore) *DivisionImporter {
	return &DivisionImporter{catalogs: catalogs}
}

func (im *DivisionImporter) Family() string     { return divisionsSchema.Family }
func (im *DivisionImporter) Schema() row.Schema { return divisionsSchema }
func (im *DivisionImporter) Tables() []string   { return []string{"divisions"} }

func (im *DivisionImporter) Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{BatchID: batchID}

	existingNames, err := im.catalogs.ExistingNames(ctx, "divisions", "name", matching.Normalize)
	if err != nil {
		return nil, err
	}
	existingCodes, err := im.catalogs.ExistingNames(ctx, "divisions", "code", matching.Normalize)
	if err != nil {
		return nil, err
	}

	columns := []string{"tenant_id", "import_batch_id", "name", "code"}
	var records [][]any
	batchNames := map[string]int{}
	batchCodes := map[string]int{}

	for _, r := range rows {
		name := r.String("name")
		if name == "" {
			result.fail(r.Line, "missing division name")
			continue
		}
		nameKey := matching.Normalize(name)
		code := strings.ToUpper(strings.TrimSpace(r.String("code")))
		codeKey := matching.Normalize(code)

		if _, ok := existingNames[nameKey]; ok {
			result.fail(r.Line, "division %q already exists", name)
			continue
		}
		if line, ok := batchNames[nameKey]; ok {
			result.fail(r.Line, "division %q duplicates row %d", name, line)
			continue
		}
		if code != "" {
			if _, ok := existingCodes[codeKey]; ok {
				result.fail(r.Line, "division code %q already exists", code)
				continue
			}
			if line, ok := batchCodes[codeKey]; ok {
				result.fail(r.Line, "division code %q duplicates row %d", code, line)
				continue
			}
			batchCodes[codeKey] = r.Line
		}
		batchNames[nameKey] = r.Line

		var codeValue any
		if code != "" {
			codeValue = code
		}
		records = append(records, []any{
			tenantID.String(),
			batchID.String(),
			name,
			codeValue,
		})
	}

	if len(records) > 0 {
		n, err := im.catalogs.BulkInsert(ctx, "divisions", columns, records)
		if err != nil {
			return nil, err
		}
		result.SuccessCount = int(n)
	}
	return result, nil
}
