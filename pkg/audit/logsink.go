package audit

import (
	"context"
	"log/slog"

	"github.com/aretw0/kiosk/pkg/domain"
)

// LogSink writes audit records as structured log lines.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink that logs at level.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{logger: logger, level: level}
}

// Record logs rec.
func (s *LogSink) Record(ctx context.Context, rec domain.AuditRecord) error {
	attrs := []slog.Attr{
		slog.String("session_id", rec.SessionID),
		slog.String("from", string(rec.From)),
		slog.String("to", string(rec.To)),
		slog.String("trigger", string(rec.Trigger)),
		slog.Time("at", rec.Timestamp),
	}
	if len(rec.Context) > 0 {
		attrs = append(attrs, slog.Any("context", rec.Context))
	}
	s.logger.LogAttrs(ctx, s.level, "Transition", attrs...)
	return nil
}
