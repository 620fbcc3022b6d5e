package adbus

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Conn and the transports/auth mechanisms it
// drives, per spec.md §7. Callers should use errors.Is against these
// rather than matching on message text.
var (
	// ErrClosed is returned by any Conn operation attempted after the
	// connection has transitioned to CLOSED.
	ErrClosed = errors.New("adbus: connection closed")

	// ErrNotConnected is returned by operations that require the SASL
	// handshake to have completed (state AUTHENTICATED or later) when
	// called earlier in the state machine.
	ErrNotConnected = errors.New("adbus: not connected to bus")

	// ErrNoReply matches (via errors.Is) the
	// org.freedesktop.DBus.Error.NoReply RemoteError that Close delivers
	// to every call still awaiting a reply. A blocking call interrupted by
	// Close may instead return ErrClosed.
	ErrNoReply = errors.New("adbus: no reply received")

	// ErrAuthFailed is returned when every configured SASL mechanism is
	// rejected by the server.
	ErrAuthFailed = errors.New("adbus: authentication failed")

	// ErrUnknownObject matches (via errors.Is) a RemoteError carrying
	// org.freedesktop.DBus.Error.UnknownObject, UnknownMethod or
	// UnknownInterface.
	ErrUnknownObject = errors.New("adbus: unknown object")
)

// ProtocolError reports a malformed message detected while parsing bytes
// off the wire: bad framing, an invalid signature, a required header
// field missing. It always indicates the peer (or the wire) violated the
// protocol, never a local misuse of the API.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adbus: protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("adbus: protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newProtocolError(reason string, err error) *ProtocolError {
	return &ProtocolError{Reason: reason, Err: err}
}

// AuthError reports a failure in the SASL handshake, carrying the name of
// the mechanism that was attempted.
type AuthError struct {
	Mechanism string
	Reason    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("adbus: auth mechanism %s failed: %s", e.Mechanism, e.Reason)
}

func (e *AuthError) Unwrap() error { return ErrAuthFailed }

// RemoteError is a method_return-as-error reply from a peer, carrying the
// D-Bus error name and the body arguments the peer attached (by
// convention usually a single human-readable string).
type RemoteError struct {
	Name string
	Args []Variant
}

func (e *RemoteError) Error() string {
	if len(e.Args) > 0 {
		if s, ok := e.Args[0].Value.(string); ok {
			return fmt.Sprintf("%s: %s", e.Name, s)
		}
	}
	return e.Name
}

// Is lets errors.Is(err, ErrUnknownObject) and errors.Is(err, ErrNoReply)
// match a RemoteError carrying the matching well-known D-Bus error name.
func (e *RemoteError) Is(target error) bool {
	if target == ErrNoReply {
		return e.Name == "org.freedesktop.DBus.Error.NoReply"
	}
	if target == ErrUnknownObject {
		return e.Name == "org.freedesktop.DBus.Error.UnknownObject" ||
			e.Name == "org.freedesktop.DBus.Error.UnknownMethod" ||
			e.Name == "org.freedesktop.DBus.Error.UnknownInterface"
	}
	return false
}
