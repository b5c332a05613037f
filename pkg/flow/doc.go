/*
Package flow declares the kiosk screen graph.

A Table is pure data: the declared state set, the initial screen and the
(trigger, from, to) transitions, with universal triggers expanded to every
non-initial state. Build rejects tables where one source state declares the same
trigger twice, so applying a trigger is always deterministic.
*/
package flow
