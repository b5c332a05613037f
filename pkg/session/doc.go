/*
Package session implements the kiosk session registry.

Each active session owns one state machine, taken from a pool, and one idle-timeout
handle in a shared scheduler. Every operation on a session (activity, transition, end
and the timeout fire itself) runs inside a per-session critical section, so operations
on one session are linearizable while unrelated sessions never contend.

Lifecycle:

	Active -> Ended               (End)
	Active -> TimedOut -> Ended   (idle timeout)

Teardown is idempotent: whichever of End and the timeout fire reaches the critical
section first tears the session down, and the other observes ErrSessionNotFound (End)
or nothing at all (timeout).
*/
package session
