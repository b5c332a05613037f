/*
Package domain contains the core domain models of the kiosk session engine.

It defines the closed set of screens (State), the actions that move between them
(Trigger, Transition), queue tickets, lifecycle events and the error taxonomy shared by
every other package. This package is kept pure and free of external dependencies like
I/O or persistence.

# Key Entities

  - State: one kiosk screen. HOME is the only initial screen.
  - Trigger: a named action requested by a caller.
  - Transition: (trigger, from, to) rule of the screen graph.
  - QueueTicket: a department-scoped, per-business-day queue number.
  - LifecycleHooks: synchronous observability callbacks.
*/
package domain
