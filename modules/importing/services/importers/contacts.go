package importers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

var contactsSchema = row.Schema{
	Family: "contacts",
	Columns: []row.Column{
		{Key: "name", Label: "Nombre", Required: true},
		{Key: "kind", Label: "Tipo"},
		{Key: "tax_id", Label: "CUIT"},
		{Key: "email", Label: "Email"},
		{Key: "phone", Label: "Teléfono"},
	},
}

// contactKinds accepts the English values plus the Spanish forms sheets
// actually carry.
var contactKinds = map[string]string{
	"client":    "client",
	"cliente":   "client",
	"provider":  "provider",
	"proveedor": "provider",
}

// ContactImporter writes clients and providers. Duplicates are rejected by
// canonical name and by tax id, both against the existing catalog and within
// the batch itself.
type ContactImporter struct {
	catalogs CatalogStore
}

func NewContactImporter(catalogs CatalogStore) *ContactImporter {
	return &ContactImporter{catalogs: catalogs}
}

func (im *ContactImporter) Family() string     { return contactsSchema.Family }
func (im *ContactImporter) Schema() row.Schema { return contactsSchema }
func (im *ContactImporter) Tables() []string   { return []string{"contacts"} }

func (im *ContactImporter) Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{BatchID: batchID}

	existingNames, err := im.catalogs.ExistingNames(ctx, "contacts", "name", matching.Normalize)
	if err != nil {
		return nil, err
	}
	existingTaxIDs, err := im.catalogs.ExistingNames(ctx, "contacts", "tax_id", normalizeTaxID)
	if err != nil {
		return nil, err
	}

	columns := []string{"tenant_id", "import_batch_id", "name", "kind", "tax_id", "email", "phone"}
	var records [][]any
	batchNames := map[string]int{}
	batchTaxIDs := map[string]int{}

	for _, r := range rows {
		name := r.String("name")
		if name == "" {
			result.fail(r.Line, "missing contact name")
			continue
		}
		kind := "client"
		if raw := r.String("kind"); raw != "" {
			k, ok := contactKinds[matching.Normalize(raw)]
			if !ok {
				result.fail(r.Line, "unknown contact type %q", raw)
				continue
			}
			kind = k
		}
		nameKey := matching.Normalize(name)
		taxID := normalizeTaxID(r.String("tax_id"))

		if _, ok := existingNames[nameKey]; ok {
			result.fail(r.Line, "contact %q already exists", name)
			continue
		}
		if line, ok := batchNames[nameKey]; ok {
			result.fail(r.Line, "contact %q duplicates row %d", name, line)
			continue
		}
		if taxID != "" {
			if _, ok := existingTaxIDs[taxID]; ok {
				result.fail(r.Line, "tax id %q already registered", taxID)
				continue
			}
			if line, ok := batchTaxIDs[taxID]; ok {
				result.fail(r.Line, "tax id %q duplicates row %d", taxID, line)
				continue
			}
			batchTaxIDs[taxID] = r.Line
		}
		batchNames[nameKey] = r.Line

		var taxIDValue any
		if taxID != "" {
			taxIDValue = taxID
		}
		records = append(records, []any{
			tenantID.String(),
			batchID.String(),
			name,
			kind,
			taxIDValue,
			nullable(r.String("email")),
			nullable(r.String("phone")),
		})
	}

	if len(records) > 0 {
		n, err := im.catalogs.BulkInsert(ctx, "contacts", columns, records)
		if err != nil {
			return nil, err
		}
		result.SuccessCount = int(n)
	}
	return result, nil
}

// normalizeTaxID strips the dashes and spaces of a formatted CUIT so
// "30-71234567-8" and "30712345678" collide.
func normalizeTaxID(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
