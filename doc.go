/*
Package kiosk is the session lifecycle engine behind a hospital self-service kiosk.

A kiosk walks patients through reception, payment and certificate issuance on a fixed
graph of screens. The engine owns everything between the touch screen and the hospital
back office: it keeps one state machine per session, expires sessions that stay idle,
and hands out queue numbers that are contiguous per department and business day.

# Layout

  - pkg/flow: the compiled screen graph (states, triggers, universal triggers).
  - pkg/machine: the per-session state machine over a flow table.
  - pkg/scheduler: one-shot, resettable timers keyed by session.
  - pkg/queue: the queue number allocator.
  - pkg/session: the session registry tying machines to timeouts.
  - pkg/kiosk: the facade transports talk to; it turns confirm_reception into a check-in.
  - pkg/audit, pkg/observability: the transition audit trail and Prometheus metrics.
  - pkg/adapters: counter stores and audit sinks (memory, Redis, PostgreSQL).

# Usage

	alloc := queue.New(memory.NewCounterStore())
	svc := kiosk.New(alloc)
	defer svc.Close(context.Background())

	started, _ := svc.Start(ctx)
	svc.Transition(ctx, started.ID, domain.TriggerSelectReception, nil)

The kiosk command (cmd/kiosk) serves the same facade over HTTP.
*/
package kiosk
