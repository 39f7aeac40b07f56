package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Reporter receives stage lifecycle events. It is a side channel: nothing
// it does may influence control flow.
type Reporter interface {
	StageStart(stage string)
	StageDone(stage string, elapsed time.Duration, items int)
	StageSkipped(stage string)
	StageFailed(stage string, elapsed time.Duration, err error)
}

// ZapReporter logs stage progress through the global zap logger.
type ZapReporter struct{}

func (ZapReporter) StageStart(stage string) {
	zap.L().Info("stage starting", zap.String("stage", stage))
}

func (ZapReporter) StageDone(stage string, elapsed time.Duration, items int) {
	zap.L().Info("stage complete",
		zap.String("stage", stage),
		zap.Duration("elapsed", elapsed),
		zap.Int("items", items),
	)
}

func (ZapReporter) StageSkipped(stage string) {
	zap.L().Info("stage skipped, reusing checkpoint", zap.String("stage", stage))
}

func (ZapReporter) StageFailed(stage string, elapsed time.Duration, err error) {
	zap.L().Error("stage failed",
		zap.String("stage", stage),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) StageStart(string)                        {}
func (NopReporter) StageDone(string, time.Duration, int)     {}
func (NopReporter) StageSkipped(string)                      {}
func (NopReporter) StageFailed(string, time.Duration, error) {}
