/*
Package machine implements the kiosk state machine engine.

A Machine holds one current screen and a context bag, and moves between screens only
along transitions declared in a flow.Table. It is not safe for concurrent use: callers
(the session registry) serialize access per session.

	m := machine.New(flow.Kiosk())
	state, err := m.Apply(domain.TriggerSelectReception)

Any accepted transition that lands on the initial screen wipes the context, so a
patient walking away through go_back, cancel or a *_done trigger never leaves data
behind for the next user.
*/
package machine
