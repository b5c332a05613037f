/*
Package observability provides tools for monitoring the kiosk engine.

Metrics turns lifecycle hooks into Prometheus series: transitions by trigger, live
sessions, timeouts, warnings, invalid triggers, tickets by department and session
duration.
*/
package observability
