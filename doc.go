// Package adbus implements a client-side binding for the D-Bus wire
// protocol: a connection multiplexes method calls, method returns, error
// replies and broadcast signals between a local process and a message-bus
// router daemon over a stream socket (TCP or UNIX).
//
// The package owns the wire codec (signature/type system, alignment,
// [Buffer] and [Iterator]), the authentication handshake (via the auth
// subpackage), the connection state machine ([Conn]), the dispatch
// registries (bindings, match rules, pending replies) and a cross-thread
// proxy bridge ([WithThreadProxy]) through which a host can have callbacks
// run on a thread of its choosing; without it, callbacks run inline on the
// connection's read-loop goroutine.
//
// It does not implement a message-bus daemon, any non-D-Bus transport, or
// RPC beyond what the protocol defines. The concrete socket transport is a
// pluggable collaborator ([Transport]); see the transport.go default
// implementation for TCP and UNIX sockets.
package adbus
