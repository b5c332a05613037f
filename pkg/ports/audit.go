package ports

import (
	"context"

	"github.com/aretw0/kiosk/pkg/domain"
)

// AuditSink receives transition records. Delivery is best effort: the engine never
// fails a transition because a sink failed.
type AuditSink interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, rec domain.AuditRecord) error

// Record calls f(ctx, rec).
func (f AuditSinkFunc) Record(ctx context.Context, rec domain.AuditRecord) error {
	return f(ctx, rec)
}
