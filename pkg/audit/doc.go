/*
Package audit builds the transition audit pipeline.

Sinks implement ports.AuditSink. Middleware wraps a sink to rewrite records on the way
through (masking personal data, sealing the context), and Dispatcher decouples the
session critical section from slow sinks with a bounded buffer that drops on overflow.

	sink := audit.Chain(redisStream,
		audit.NewPIIMiddleware([]string{"patient", "phone"}),
	)
	d := audit.NewDispatcher(sink, 256)
	defer d.Close()
*/
package audit
