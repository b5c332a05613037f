/*
Package ports defines the driven ports (interfaces) of the kiosk engine.

These interfaces decouple the core logic from external implementations, allowing
the queue allocator and the audit pipeline to run against memory, Redis or Postgres.

# Key Interfaces

  - CounterStore: per (department, business day) queue counters.
  - AuditSink: receives one record per accepted transition.
*/
package ports
