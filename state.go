package adbus

import "sync/atomic"

var stateGroupSeq atomic.Uint64

// State groups matches, replies and bindings registered through it so
// they can be released together, per spec.md §4.K. It is intended for
// single-threaded ownership: a UI widget or a request-scoped handler
// creates a State, registers everything it needs through it, and calls
// Reset or Drop at teardown without having to track each registration id
// itself. Nothing is released when a State is garbage collected.
type State struct {
	conn    *Conn
	id      uint64
	matches []uint64
	binds   []*Binding
}

// NewState creates a new grouping handle bound to conn.
func (c *Conn) NewState() *State {
	return &State{conn: c, id: stateGroupSeq.Add(1)}
}

// AddMatch registers a signal match rule under this State's group and
// returns its id for individual removal via conn.RemoveMatch if needed.
func (s *State) AddMatch(rule MatchRule, fn SignalFunc) uint64 {
	id := s.conn.matches.add(rule, fn)
	s.matches = append(s.matches, id)
	return id
}

// Bind attaches iface at path and tracks the Binding for bulk removal.
func (s *State) Bind(path string, iface *Interface) (*Binding, error) {
	b, err := s.conn.Bind(path, iface)
	if err != nil {
		return nil, err
	}
	s.binds = append(s.binds, b)
	return b, nil
}

// GroupID returns the opaque id used to tag replies registered with
// Conn.callWithGroup, letting Reset also cancel in-flight calls.
func (s *State) GroupID() uint64 { return s.id }

// Reset releases every match and binding registered through this State,
// and cancels any pending replies tagged with its group id, without
// discarding the State itself: it can be reused immediately afterwards.
func (s *State) Reset() {
	s.conn.matches.removeAll(s.matches)
	s.conn.replies.removeAll(s.id)
	for _, b := range s.binds {
		b.Remove()
	}
	s.matches = s.matches[:0]
	s.binds = s.binds[:0]
}

// Drop releases everything Reset does; provided as a separate name for
// callers that prefer an explicit "I'm done with this State" call site
// (e.g. a defer) over reusing Reset's reusability implication.
func (s *State) Drop() { s.Reset() }
