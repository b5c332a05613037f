package audit

import (
	"context"
	"regexp"

	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/ports"
)

// Mask replaces values whose key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.AuditSink
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks context values of keys matching the
// patterns. Patterns are case-insensitive regular expressions.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, 0, len(patternStrings))
	for _, p := range patternStrings {
		if p == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile("(?i)"+p))
	}
	return func(next ports.AuditSink) ports.AuditSink {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Record(ctx context.Context, rec domain.AuditRecord) error {
	if rec.Context != nil {
		// The record may share maps with the session; never mask in place.
		rec.Context = deepCopyMap(rec.Context)
		maskMap(rec.Context, m.patterns)
	}
	return m.next.Record(ctx, rec)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		maskValue(v, patterns)
	}
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch val := v.(type) {
	case map[string]any:
		maskMap(val, patterns)
	case []any:
		for _, item := range val {
			maskValue(item, patterns)
		}
	}
}
