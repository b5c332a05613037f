package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/kiosk/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// AuditStream implements ports.AuditSink by appending records to a Redis stream.
type AuditStream struct {
	client *backend.Client
	stream string
	maxLen int64
}

// NewAuditStream creates a sink writing to stream, trimmed to about maxLen entries.
// A maxLen of zero disables trimming.
func NewAuditStream(client *backend.Client, stream string, maxLen int64) *AuditStream {
	if stream == "" {
		stream = "kiosk:audit"
	}
	return &AuditStream{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Record appends rec to the stream.
func (a *AuditStream) Record(ctx context.Context, rec domain.AuditRecord) error {
	payload, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal audit context: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: a.stream,
		Values: map[string]any{
			"session_id": rec.SessionID,
			"from":       string(rec.From),
			"to":         string(rec.To),
			"trigger":    string(rec.Trigger),
			"timestamp":  rec.Timestamp.UTC().Format(time.RFC3339Nano),
			"context":    string(payload),
		},
	}
	if a.maxLen > 0 {
		args.MaxLen = a.maxLen
		args.Approx = true
	}

	if err := a.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Recent reads up to count records, newest first.
func (a *AuditStream) Recent(ctx context.Context, count int64) ([]domain.AuditRecord, error) {
	msgs, err := a.client.XRevRangeN(ctx, a.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit stream: %w", err)
	}

	out := make([]domain.AuditRecord, 0, len(msgs))
	for _, m := range msgs {
		rec := domain.AuditRecord{
			SessionID: str(m.Values["session_id"]),
			From:      domain.State(str(m.Values["from"])),
			To:        domain.State(str(m.Values["to"])),
			Trigger:   domain.Trigger(str(m.Values["trigger"])),
		}
		if ts, err := time.Parse(time.RFC3339Nano, str(m.Values["timestamp"])); err == nil {
			rec.Timestamp = ts
		}
		if raw := str(m.Values["context"]); raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &rec.Context); err != nil {
				return nil, fmt.Errorf("failed to decode audit context of %s: %w", m.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
