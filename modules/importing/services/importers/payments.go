package importers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
	"github.com/obralink/importkit/pkg/dateutil"
)

var paymentsSchema = row.Schema{
	Family: "payments",
	Columns: []row.Column{
		{Key: "date", Label: "Fecha", Kind: row.KindDate},
		{Key: "description", Label: "Descripción", Required: true},
		{Key: "amount", Label: "Monto", Required: true, Kind: row.KindNumber},
		{Key: "currency", Label: "Moneda"},
		{Key: "wallet", Label: "Caja", Required: true, FK: &row.FKRule{
			Table:       "wallets",
			IDField:     "id",
			LabelFields: []string{"name", "currency_code"},
		}},
		{Key: "category", Label: "Rubro", FK: &row.FKRule{
			Table:       "categories",
			IDField:     "id",
			LabelFields: []string{"name"},
			AllowCreate: true,
		}},
		{Key: "contact", Label: "Contacto", FK: &row.FKRule{
			Table:       "contacts",
			IDField:     "id",
			LabelFields: []string{"name"},
			Optional:    true,
		}},
	},
}

// PaymentImporter writes charge/return movements. Signs are normalized away:
// the stored amount is always absolute and the kind column carries direction,
// so a sheet mixing "-1500" returns with positive charges imports cleanly but
// leaves a warning for the operator to audit.
type PaymentImporter struct {
	catalogs        CatalogStore
	lookups         LookupStore
	defaultCurrency string
}

func NewPaymentImporter(catalogs CatalogStore, lookups LookupStore, defaultCurrency string) *PaymentImporter {
	return &PaymentImporter{catalogs: catalogs, lookups: lookups, defaultCurrency: defaultCurrency}
}

func (im *PaymentImporter) Family() string     { return paymentsSchema.Family }
func (im *PaymentImporter) Schema() row.Schema { return paymentsSchema }
func (im *PaymentImporter) Tables() []string   { return []string{"payments"} }

func (im *PaymentImporter) Import(ctx context.Context, batchID uuid.UUID, rows []row.Row) (*Result, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{BatchID: batchID}

	contactCol, _ := paymentsSchema.Column("contact")
	contactIdx, err := im.lookups.Index(ctx, contactCol.FK)
	if err != nil {
		return nil, err
	}

	columns := []string{
		"tenant_id", "import_batch_id", "payment_date", "description",
		"amount", "currency", "kind", "wallet_id", "category_id", "contact_id",
	}
	var records [][]any
	sawPositive, sawNegative := false, false

	for _, r := range rows {
		description := r.String("description")
		if description == "" {
			result.fail(r.Line, "missing description")
			continue
		}
		amount, err := parseAmount(r.Raw("amount"))
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		// negatives become returns below; zero is the one sign with no kind
		if amount.IsZero() {
			result.fail(r.Line, "amount must be non-zero")
			continue
		}
		currency, err := canonicalCurrency(r.String("currency"), im.defaultCurrency)
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		walletID, err := requireFK(r, "wallet", "wallet")
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}
		categoryID, hasCategory, err := optionalFK(r, "category", "category")
		if err != nil {
			result.fail(r.Line, "%v", err)
			continue
		}

		kind := "charge"
		if amount.IsNegative() {
			kind = "return"
			sawNegative = true
		} else if amount.IsPositive() {
			sawPositive = true
		}

		date, ok := dateutil.Parse(r.Raw("date"))
		if !ok {
			date = time.Now()
			if r.String("date") != "" {
				result.warn("row %d: unparseable date %q, used today", r.Line, r.String("date"))
			}
		}

		contactID, hasContact := softResolve(r, contactCol, contactIdx, result)

		records = append(records, []any{
			tenantID.String(),
			batchID.String(),
			date,
			description,
			amount.Abs(),
			currency,
			kind,
			walletID,
			nullableID(categoryID, hasCategory),
			nullableID(contactID, hasContact),
		})
	}

	if sawPositive && sawNegative {
		result.warn("batch mixes positive and negative amounts; stored as absolute values, check the kind column")
	}
	if len(records) > 0 {
		n, err := im.catalogs.BulkInsert(ctx, "payments", columns, records)
		if err != nil {
			return nil, err
		}
		result.SuccessCount = int(n)
	}
	return result, nil
}
