package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/obralink/importkit/modules/importing/domain/batch"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
	"github.com/obralink/importkit/pkg/constants"
)

func txCtx(tenantID uuid.UUID, tx any) context.Context {
	return context.WithValue(composables.WithTenantID(context.Background(), tenantID), constants.TxKey, tx)
}

func TestBatchRepository_Create_WritesAllColumns(t *testing.T) {
	tenantID := uuid.New()
	b := batch.New("payments", 12, batch.WithTenantID(tenantID), batch.WithCreatedBy(7))

	execCalled := false
	tx := &stubTx{
		execFunc: func(ctx context.Context, q string, args ...any) (pgconn.CommandTag, error) {
			execCalled = true
			require.Contains(t, q, "INSERT INTO import_batches")
			require.Equal(t, b.ID().String(), args[0])
			require.Equal(t, tenantID.String(), args[1])
			require.Equal(t, "payments", args[2])
			require.Equal(t, 12, args[3])
			require.Equal(t, "pending", args[4])
			require.Equal(t, sql.NullInt64{Int64: 7, Valid: true}, args[5])
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewBatchRepository()
	require.NoError(t, repo.Create(txCtx(tenantID, tx), b))
	require.True(t, execCalled)
}

func TestBatchRepository_List_FiltersByTenantAndType(t *testing.T) {
	tenantID := uuid.New()
	now := time.Now()

	tx := &stubTx{
		queryFunc: func(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
			require.Contains(t, q, "WHERE tenant_id = $1")
			require.Contains(t, q, "entity_type = $2")
			require.Contains(t, q, "ORDER BY created_at DESC")
			require.Equal(t, tenantID.String(), args[0])
			require.Equal(t, "materials", args[1])
			return &stubRows{data: [][]any{
				{uuid.New().String(), tenantID.String(), "materials", 5, "completed", sql.NullInt64{}, now},
			}}, nil
		},
	}

	repo := NewBatchRepository()
	batches, err := repo.List(txCtx(tenantID, tx), &batch.FindParams{EntityType: "materials"})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, "materials", batches[0].EntityType())
	require.Equal(t, batch.StatusCompleted, batches[0].Status())
	require.Equal(t, 5, batches[0].RowCount())
}

func TestBatchRepository_MarkCompleted_RequiresPendingRow(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		execFunc: func(ctx context.Context, q string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, q, "UPDATE import_batches")
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	repo := NewBatchRepository()
	err := repo.MarkCompleted(txCtx(tenantID, tx), uuid.New())
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestBatchRepository_Revert_FlipsStatusThenTombstones(t *testing.T) {
	tenantID := uuid.New()
	batchID := uuid.New()
	var queries []string

	tx := &stubTx{
		execFunc: func(ctx context.Context, q string, args ...any) (pgconn.CommandTag, error) {
			queries = append(queries, q)
			require.Equal(t, batchID.String(), args[len(args)-1])
			if len(queries) == 1 {
				return pgconn.NewCommandTag("UPDATE 1"), nil
			}
			return pgconn.NewCommandTag("UPDATE 4"), nil
		},
	}

	repo := NewBatchRepository()
	affected, err := repo.Revert(txCtx(tenantID, tx), batchID, "payments")
	require.NoError(t, err)
	require.Equal(t, int64(4), affected)
	require.Len(t, queries, 2)
	require.Contains(t, queries[0], "SET status")
	require.Contains(t, queries[1], "UPDATE payments SET deleted_at = now()")
	require.Contains(t, queries[1], "deleted_at IS NULL")
}

func TestBatchRepository_Revert_SecondCallRemovesNothing(t *testing.T) {
	tenantID := uuid.New()
	call := 0
	tx := &stubTx{
		execFunc: func(ctx context.Context, q string, args ...any) (pgconn.CommandTag, error) {
			call++
			if call%2 == 1 {
				return pgconn.NewCommandTag("UPDATE 1"), nil
			}
			// every data row already carries deleted_at after the first pass
			if call == 2 {
				return pgconn.NewCommandTag("UPDATE 4"), nil
			}
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	repo := NewBatchRepository()
	ctx := txCtx(tenantID, tx)
	first, err := repo.Revert(ctx, uuid.New(), "payments")
	require.NoError(t, err)
	require.Equal(t, int64(4), first)

	second, err := repo.Revert(ctx, uuid.New(), "payments")
	require.NoError(t, err)
	require.Zero(t, second)
}

func TestBatchRepository_Revert_UnknownBatch(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		execFunc: func(ctx context.Context, q string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	repo := NewBatchRepository()
	_, err := repo.Revert(txCtx(tenantID, tx), uuid.New(), "payments")
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestLookupRepository_BuildsIndexFromSnapshot(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
			require.Contains(t, q, "FROM wallets")
			require.Contains(t, q, "deleted_at IS NULL")
			require.Equal(t, tenantID.String(), args[0])
			return &stubRows{data: [][]any{
				{int64(1), "Caja Pesos", "ARS"},
				{int64(2), "Caja Dólares", "USD"},
			}}, nil
		},
	}

	repo := NewLookupRepository()
	ix, err := repo.Index(txCtx(tenantID, tx), &row.FKRule{
		Table:       "wallets",
		IDField:     "id",
		LabelFields: []string{"name", "currency_code"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, ix.Len())

	id, ok := ix.Lookup("caja pesos")
	require.True(t, ok)
	require.Equal(t, int64(1), id)
	id, ok = ix.Lookup("usd")
	require.True(t, ok)
	require.Equal(t, int64(2), id)
}

func TestLookupRepository_FailureYieldsEmptyIndexAndError(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
			return nil, errors.New("connection reset")
		},
	}
	repo := NewLookupRepository()
	ix, err := repo.Index(txCtx(tenantID, tx), &row.FKRule{
		Table: "wallets", IDField: "id", LabelFields: []string{"name"},
	})
	require.Error(t, err)
	require.NotNil(t, ix)
	require.True(t, ix.Empty())
}

func TestPatternRepository_ForFamilyGroupsByColumn(t *testing.T) {
	tenantID := uuid.New()
	tx := &stubTx{
		queryFunc: func(ctx context.Context, q string, args ...any) (pgx.Rows, error) {
			require.Contains(t, q, "FROM import_match_patterns")
			require.Equal(t, tenantID.String(), args[0])
			require.Equal(t, "payments", args[1])
			return &stubRows{data: [][]any{
				{"wallet", "Caja Vieja", int64(2)},
				{"wallet", "caja ppal", int64(1)},
				{"category", "Fletes", int64(9)},
			}}, nil
		},
	}

	repo := NewPatternRepository()
	patterns, err := repo.ForFamily(txCtx(tenantID, tx), "payments")
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	require.Equal(t, int64(2), patterns["wallet"]["Caja Vieja"])
	require.Equal(t, int64(9), patterns["category"]["Fletes"])
}

type stubTx struct {
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.execFunc == nil {
		return pgconn.CommandTag{}, errors.New("exec not implemented")
	}
	return s.execFunc(ctx, sql, args...)
}

func (s *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.queryFunc == nil {
		return nil, errors.New("query not implemented")
	}
	return s.queryFunc(ctx, sql, args...)
}

func (s *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.queryRowFunc == nil {
		return stubRow{scan: func(dest ...any) error { return errors.New("query row not implemented") }}
	}
	return s.queryRowFunc(ctx, sql, args...)
}

type stubRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return errors.New("no current row to scan")
	}
	current := r.data[r.idx-1]
	if len(dest) != len(current) {
		return fmt.Errorf("destination length %d does not match row length %d", len(dest), len(current))
	}
	for i, target := range dest {
		switch v := target.(type) {
		case *string:
			*v = current[i].(string)
		case *int:
			*v = current[i].(int)
		case *int64:
			*v = current[i].(int64)
		case *time.Time:
			*v = current[i].(time.Time)
		case *sql.NullInt64:
			*v = current[i].(sql.NullInt64)
		case *sql.NullString:
			switch val := current[i].(type) {
			case string:
				*v = sql.NullString{String: val, Valid: true}
			case sql.NullString:
				*v = val
			default:
				return fmt.Errorf("unsupported NullString source %T", current[i])
			}
		default:
			return fmt.Errorf("unsupported scan target %T", target)
		}
	}
	return nil
}

func (r *stubRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.data) {
		return nil, errors.New("no current row")
	}
	return r.data[r.idx-1], nil
}

func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) Close()                                       {}
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	if r.scan == nil {
		return errors.New("scan not implemented")
	}
	return r.scan(dest...)
}
