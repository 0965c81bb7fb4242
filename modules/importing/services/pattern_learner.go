package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/obralink/importkit/pkg/composables"
)

// PatternLearner persists operator resolutions as learned matcher patterns.
// It subscribes to ImportCompletedEvent and writes in its own transaction
// after the batch has committed, so a failed pattern write never takes the
// import down with it.
type PatternLearner struct {
	patterns PatternStore
	log      *logrus.Logger
}

func NewPatternLearner(patterns PatternStore, log *logrus.Logger) *PatternLearner {
	return &PatternLearner{patterns: patterns, log: log}
}

func (l *PatternLearner) OnImportCompleted(e ImportCompletedEvent) {
	if len(e.Learned) == 0 {
		return
	}
	err := composables.InTx(e.Ctx, func(txCtx context.Context) error {
		for _, p := range e.Learned {
			if err := l.patterns.Save(txCtx, e.Family, p.ColumnKey, p.RawValue, p.TargetID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.log.WithError(err).WithField("batch_id", e.BatchID).Warn("failed to persist learned patterns")
	}
}
