// Package report records the outcome of import runs.
package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/stoik/taskbridge/services/importer/internal/migration"
)

// Sink receives the result of every run, successful or not
type Sink interface {
	Write(ctx context.Context, result *migration.Result) error
}

// LogSink writes run summaries to a zap logger
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, result *migration.Result) error {
	row := newRun(result)
	fields := []zap.Field{
		zap.String("run_id", row.ID.String()),
		zap.String("source", row.Source),
		zap.String("team_id", row.TeamID),
		zap.Duration("duration", row.FinishedAt.Sub(row.StartedAt)),
		zap.Any("created", row.Created),
		zap.Any("reused", row.Reused),
		zap.Int("failures", row.Failures),
	}
	if row.Error != "" {
		s.logger.Error("import run failed", append(fields, zap.String("error", row.Error))...)
		return nil
	}
	s.logger.Info("import run completed", fields...)
	return nil
}

// Multi fans a result out to every sink and returns the first error
type Multi []Sink

func (m Multi) Write(ctx context.Context, result *migration.Result) error {
	var first error
	for _, s := range m {
		if err := s.Write(ctx, result); err != nil && first == nil {
			first = err
		}
	}
	return first
}
