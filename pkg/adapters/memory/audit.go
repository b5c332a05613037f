package memory

import (
	"context"
	"sync"

	"github.com/aretw0/kiosk/pkg/domain"
)

// AuditLog implements ports.AuditSink by keeping records in memory.
type AuditLog struct {
	mu      sync.RWMutex
	records []domain.AuditRecord
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends rec.
func (l *AuditLog) Record(ctx context.Context, rec domain.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of everything recorded so far.
func (l *AuditLog) Records() []domain.AuditRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.AuditRecord(nil), l.records...)
}

// BySession returns the records of one session, in arrival order.
func (l *AuditLog) BySession(sessionID string) []domain.AuditRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.AuditRecord
	for _, r := range l.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}
