package audit

import "github.com/aretw0/kiosk/pkg/ports"

// Middleware allows wrapping an AuditSink to add behavior.
type Middleware func(ports.AuditSink) ports.AuditSink

// Chain wraps sink so that records pass through mws in order before reaching it.
func Chain(sink ports.AuditSink, mws ...Middleware) ports.AuditSink {
	for i := len(mws) - 1; i >= 0; i-- {
		sink = mws[i](sink)
	}
	return sink
}
