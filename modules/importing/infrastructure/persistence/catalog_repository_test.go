package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/obralink/importkit/modules/importing/domain/matching"
)

func TestCatalogRepository_ExistingNames_SkipsNullValues(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
			require.Contains(t, q, "SELECT id, tax_id FROM contacts")
			require.Contains(t, q, "deleted_at IS NULL")
			require.Equal(t, tenantID.String(), args[0])
			return &stubRows{data: [][]any{
				{int64(1), "30-71234567-8"},
				{int64(2), sql.NullString{}},
				{int64(3), "20-11222333-4"},
			}}, nil
		},
	}

	repo := NewCatalogRepository()
	names, err := repo.ExistingNames(txCtx(tenantID, tx), "contacts", "tax_id", nil)
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Equal(t, int64(1), names["30-71234567-8"])
	require.Equal(t, int64(3), names["20-11222333-4"])
}

func TestCatalogRepository_ExistingNames_NormalizesAndFirstWins(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
			return &stubRows{data: [][]any{
				{int64(1), "Hormigón"},
				{int64(2), "HORMIGON"},
			}}, nil
		},
	}

	repo := NewCatalogRepository()
	names, err := repo.ExistingNames(txCtx(tenantID, tx), "materials", "name", matching.Normalize)
	require.NoError(t, err)
	require.Len(t, names, 1)
	require.Equal(t, int64(1), names["hormigon"])
}
