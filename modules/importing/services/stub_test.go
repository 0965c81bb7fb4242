package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/obralink/importkit/modules/importing/domain/batch"
	"github.com/obralink/importkit/modules/importing/domain/matching"
	"github.com/obralink/importkit/modules/importing/domain/row"
)

type stubLookup struct {
	indices   map[string]*matching.Index
	failTable string
}

func (s *stubLookup) Index(_ context.Context, rule *row.FKRule) (*matching.Index, error) {
	if rule.Table == s.failTable {
		return matching.NewIndex(nil), fmt.Errorf("snapshot of %s failed", rule.Table)
	}
	if ix, ok := s.indices[rule.Table]; ok {
		return ix, nil
	}
	return matching.NewIndex(nil), nil
}

type savedPattern struct {
	family, columnKey, rawValue string
	targetID                    int64
}

type stubPatterns struct {
	patterns map[string]matching.Patterns
	saved    []savedPattern
}

func (s *stubPatterns) ForFamily(_ context.Context, _ string) (map[string]matching.Patterns, error) {
	return s.patterns, nil
}

func (s *stubPatterns) Save(_ context.Context, family, columnKey, rawValue string, targetID int64) error {
	s.saved = append(s.saved, savedPattern{family, columnKey, rawValue, targetID})
	return nil
}

type stubCatalog struct {
	nextID  int64
	created []string
	inserts map[string]int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{nextID: 100, inserts: map[string]int{}}
}

func (s *stubCatalog) ExistingNames(_ context.Context, _, _ string, _ func(string) string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (s *stubCatalog) GetOrCreateByName(_ context.Context, table, _, name string, _ map[string]any) (int64, error) {
	s.nextID++
	s.created = append(s.created, fmt.Sprintf("%s:%s", table, name))
	return s.nextID, nil
}

func (s *stubCatalog) BulkInsert(_ context.Context, table string, _ []string, records [][]any) (int64, error) {
	s.inserts[table] += len(records)
	return int64(len(records)), nil
}

func (s *stubCatalog) BulkInsertReturning(_ context.Context, table string, _ []string, records [][]any) ([]int64, error) {
	s.inserts[table] += len(records)
	ids := make([]int64, len(records))
	for i := range records {
		s.nextID++
		ids[i] = s.nextID
	}
	return ids, nil
}

type stubBatchRepo struct {
	batches   map[uuid.UUID]*batch.Batch
	completed []uuid.UUID
	reverted  []string
	revertN   int64
}

func newStubBatchRepo() *stubBatchRepo {
	return &stubBatchRepo{batches: map[uuid.UUID]*batch.Batch{}}
}

func (s *stubBatchRepo) Create(_ context.Context, b *batch.Batch) error {
	s.batches[b.ID()] = b
	return nil
}

func (s *stubBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*batch.Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, fmt.Errorf("import batch not found")
	}
	return b, nil
}

func (s *stubBatchRepo) List(_ context.Context, _ *batch.FindParams) ([]*batch.Batch, error) {
	out := make([]*batch.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, b)
	}
	return out, nil
}

func (s *stubBatchRepo) MarkCompleted(_ context.Context, id uuid.UUID) error {
	s.completed = append(s.completed, id)
	return nil
}

func (s *stubBatchRepo) Revert(_ context.Context, id uuid.UUID, table string) (int64, error) {
	s.reverted = append(s.reverted, table)
	return s.revertN, nil
}
