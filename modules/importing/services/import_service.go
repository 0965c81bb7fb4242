package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/obralink/importkit/modules/importing/domain/batch"
	"github.com/obralink/importkit/modules/importing/domain/conflict"
	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/modules/importing/services/importers"
	"github.com/obralink/importkit/pkg/composables"
	"github.com/obralink/importkit/pkg/eventbus"
	"github.com/obralink/importkit/pkg/serrors"
)

var (
	ErrUnknownFamily = serrors.NewError("UNKNOWN_FAMILY", "unknown entity family", "")
	ErrTooManyRows   = serrors.NewError("TOO_MANY_ROWS", "too many rows in one submission", "split the upload or raise IMPORT_MAX_ROWS")
)

// ImportService orchestrates one reconciliation run per submission: detect,
// apply resolutions, create the audit batch, hand the rows to the family's
// importer inside one transaction, and publish the outcome. There is no
// long-lived state; every run builds its own lookup indices and discards
// them.
type ImportService struct {
	batches   batch.Repository
	catalogs  importers.CatalogStore
	conflicts *ConflictService
	registry  map[string]importers.Importer
	bus       eventbus.EventBus
	log       *logrus.Logger
	maxRows   int
}

func NewImportService(
	batches batch.Repository,
	catalogs importers.CatalogStore,
	conflicts *ConflictService,
	bus eventbus.EventBus,
	log *logrus.Logger,
	maxRows int,
) *ImportService {
	return &ImportService{
		batches:   batches,
		catalogs:  catalogs,
		conflicts: conflicts,
		registry:  map[string]importers.Importer{},
		bus:       bus,
		log:       log,
		maxRows:   maxRows,
	}
}

func (s *ImportService) Register(imp importers.Importer) {
	s.registry[imp.Family()] = imp
}

func (s *ImportService) Families() []string {
	out := make([]string, 0, len(s.registry))
	for f := range s.registry {
		out = append(out, f)
	}
	return out
}

// Schema exposes a family's column declaration for upload binding.
func (s *ImportService) Schema(family string) (row.Schema, error) {
	imp, err := s.importer(family)
	if err != nil {
		return row.Schema{}, err
	}
	return imp.Schema(), nil
}

func (s *ImportService) importer(family string) (importers.Importer, error) {
	imp, ok := s.registry[family]
	if !ok {
		families := s.Families()
		sort.Strings(families)
		return nil, errors.Wrap(
			ErrUnknownFamily.WithHint("known families: "+strings.Join(families, ", ")),
			family,
		)
	}
	return imp, nil
}

// Detect runs only the detection pass, for the pre-import round trip where
// the operator is shown what needs deciding.
func (s *ImportService) Detect(ctx context.Context, family string, rows []row.Row) ([]conflict.Conflict, error) {
	imp, err := s.importer(family)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(rows); err != nil {
		return nil, err
	}
	return s.conflicts.Detect(ctx, imp.Schema(), rows)
}

// Import is the full pipeline. Rows whose governing value got an "ignore"
// resolution are dropped and counted; everything else either lands in the
// target tables stamped with the batch id or comes back as a per-line error.
// The batch record is created before the importer runs so a failed run still
// leaves an audit trace; the inserts and the completion flip share one
// transaction.
func (s *ImportService) Import(ctx context.Context, family string, rows []row.Row, resolutions conflict.Set) (*importers.Result, error) {
	imp, err := s.importer(family)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(rows); err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.conflicts.Detect(ctx, imp.Schema(), rows)
	if err != nil {
		return nil, err
	}
	if resolutions == nil {
		resolutions = conflict.Set{}
	}
	learned, err := s.materializeCreates(ctx, imp.Schema(), conflicts, resolutions)
	if err != nil {
		return nil, err
	}

	total := len(rows)
	applied, ignored := conflict.Apply(rows, conflicts, resolutions)

	userID := uint(0)
	if uid, err := composables.UseUserID(ctx); err == nil {
		userID = uid
	}
	b := batch.New(family, total, batch.WithTenantID(tenantID), batch.WithCreatedBy(userID))
	if err := composables.InTx(ctx, func(txCtx context.Context) error {
		return s.batches.Create(txCtx, b)
	}); err != nil {
		return nil, err
	}

	var result *importers.Result
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		result, err = imp.Import(txCtx, b.ID(), applied)
		if err != nil {
			return err
		}
		result.IgnoredCount = ignored
		if got := result.SuccessCount + len(result.Errors) + ignored; got != total {
			return fmt.Errorf("row accounting mismatch: %d of %d rows accounted for", got, total)
		}
		return s.batches.MarkCompleted(txCtx, b.ID())
	})
	if err != nil {
		s.log.WithError(err).WithField("batch_id", b.ID()).Error("import failed, batch left pending")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"batch_id": b.ID(),
		"family":   family,
		"rows":     total,
		"inserted": result.SuccessCount,
		"errors":   len(result.Errors),
		"ignored":  ignored,
	}).Info("import completed")
	s.bus.Publish(ImportCompletedEvent{
		Ctx:     ctx,
		Family:  family,
		BatchID: b.ID(),
		Result:  result,
		Learned: learned,
	})
	return result, nil
}

// Revert tombstones every row of a batch and flips its status, one
// transaction per target table. Safe to repeat; a second call finds nothing
// left to tombstone.
func (s *ImportService) Revert(ctx context.Context, batchID uuid.UUID) (int64, error) {
	b, err := findTenantBatch(ctx, s.batches, batchID)
	if err != nil {
		return 0, err
	}
	imp, err := s.importer(b.EntityType())
	if err != nil {
		return 0, err
	}
	var total int64
	for _, table := range imp.Tables() {
		n, err := s.batches.Revert(ctx, batchID, table)
		if err != nil {
			return total, err
		}
		total += n
	}
	s.log.WithFields(logrus.Fields{
		"batch_id": batchID,
		"family":   b.EntityType(),
		"rows":     total,
	}).Info("batch reverted")
	s.bus.Publish(BatchRevertedEvent{Ctx: ctx, Family: b.EntityType(), BatchID: batchID, RowsRemoved: total})
	return total, nil
}

func (s *ImportService) History(ctx context.Context, params *batch.FindParams) ([]*batch.Batch, error) {
	return s.batches.List(ctx, params)
}

func (s *ImportService) checkSize(rows []row.Row) error {
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return errors.Wrapf(ErrTooManyRows, "%d rows, limit %d", len(rows), s.maxRows)
	}
	return nil
}

// materializeCreates turns "create" resolutions into real catalog rows before
// the rewrite pass, so Apply can stamp the fresh ids. Only columns whose FK
// rule allows creation qualify. Returns the map/create decisions worth
// learning for future runs.
func (s *ImportService) materializeCreates(ctx context.Context, schema row.Schema, conflicts []conflict.Conflict, resolutions conflict.Set) ([]LearnedPattern, error) {
	var learned []LearnedPattern
	for _, c := range conflicts {
		col, ok := schema.Column(c.ColumnKey)
		if !ok || col.FK == nil {
			continue
		}
		for _, raw := range c.Missing {
			r, ok := resolutions.Get(c.ColumnKey, raw)
			if !ok {
				continue
			}
			switch r.Action {
			case conflict.ActionCreate:
				if !c.AllowCreate {
					return nil, fmt.Errorf("creation not allowed for %s", c.ColumnLabel)
				}
				if r.TargetID == 0 {
					var id int64
					err := composables.InTx(ctx, func(txCtx context.Context) error {
						var err error
						id, err = s.catalogs.GetOrCreateByName(txCtx, c.Table, col.FK.LabelFields[0], raw, nil)
						return err
					})
					if err != nil {
						return nil, err
					}
					r.TargetID = id
					resolutions.Put(c.ColumnKey, raw, r)
				}
				learned = append(learned, LearnedPattern{ColumnKey: c.ColumnKey, RawValue: raw, TargetID: r.TargetID})
			case conflict.ActionMap:
				if r.TargetID != 0 {
					learned = append(learned, LearnedPattern{ColumnKey: c.ColumnKey, RawValue: raw, TargetID: r.TargetID})
				}
			}
		}
	}
	return learned, nil
}

func findTenantBatch(ctx context.Context, repo batch.Repository, id uuid.UUID) (*batch.Batch, error) {
	b, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if b.TenantID() != tenantID {
		return nil, fmt.Errorf("import batch not found")
	}
	return b, nil
}
