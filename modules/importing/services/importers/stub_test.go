package importers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/pkg/composables"
)

type insertCall struct {
	table   string
	columns []string
	records [][]any
}

type stubCatalog struct {
	existing map[string]map[string]int64 // "table.field" -> normalized value -> id
	nextID   int64
	created  []string
	inserts  []insertCall
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{existing: map[string]map[string]int64{}, nextID: 100}
}

func (s *stubCatalog) seed(table, field string, values map[string]int64) {
	s.existing[table+"."+field] = values
}

func (s *stubCatalog) ExistingNames(_ context.Context, table, nameField string, normalize func(string) string) (map[string]int64, error) {
	out := map[string]int64{}
	for k, v := range s.existing[table+"."+nameField] {
		key := k
		if normalize != nil {
			key = normalize(k)
		}
		out[key] = v
	}
	return out, nil
}

func (s *stubCatalog) GetOrCreateByName(_ context.Context, table, nameField, name string, _ map[string]any) (int64, error) {
	if id, ok := s.existing[table+"."+nameField][name]; ok {
		return id, nil
	}
	s.nextID++
	s.created = append(s.created, fmt.Sprintf("%s:%s", table, name))
	return s.nextID, nil
}

func (s *stubCatalog) BulkInsert(_ context.Context, table string, columns []string, records [][]any) (int64, error) {
	s.inserts = append(s.inserts, insertCall{table: table, columns: columns, records: records})
	return int64(len(records)), nil
}

func (s *stubCatalog) BulkInsertReturning(_ context.Context, table string, columns []string, records [][]any) ([]int64, error) {
	s.inserts = append(s.inserts, insertCall{table: table, columns: columns, records: records})
	ids := make([]int64, len(records))
	for i := range records {
		s.nextID++
		ids[i] = s.nextID
	}
	return ids, nil
}

func (s *stubCatalog) insertsFor(table string) []insertCall {
	var out []insertCall
	for _, c := range s.inserts {
		if c.table == table {
			out = append(out, c)
		}
	}
	return out
}

type stubLookup struct {
	indices map[string]*matching.Index
}

func (s *stubLookup) Index(_ context.Context, rule *row.FKRule) (*matching.Index, error) {
	if ix, ok := s.indices[rule.Table]; ok {
		return ix, nil
	}
	return matching.NewIndex(nil), nil
}

func testCtx() context.Context {
	return composables.WithTenantID(context.Background(), uuid.New())
}

func cellValue(call insertCall, record int, column string) any {
	for i, c := range call.columns {
		if c == column {
			return call.records[record][i]
		}
	}
	return nil
}
