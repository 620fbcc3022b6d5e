package adbus

import (
	"context"
	"time"
)

// BlockFunc and UnblockFunc let a host event loop suspend itself while a
// synchronous call waits for a reply and resume once it arrives, per
// spec.md §4.M: block() yields control back to, say, a GUI's run loop
// instead of parking a goroutine that the loop is itself driving.
type BlockFunc func()
type UnblockFunc func()

// BlockingHost optionally overrides how Conn.CallTimeout waits for a
// reply. Without one, CallTimeout just blocks the calling goroutine on a
// channel, which is correct and sufficient for ordinary Go programs; a
// host embedding adbus inside a single-threaded event loop instead
// supplies Block/Unblock so the wait re-enters that loop rather than
// stalling it.
type BlockingHost struct {
	Block   BlockFunc
	Unblock UnblockFunc
}

// CallTimeout is Call's fully synchronous form: it sends the method call
// and waits up to timeout for the reply, returning the method_return body
// iterator or the RemoteError/timeout that prevented one.
func (c *Conn) CallTimeout(destination, path, iface, member string, body *Buffer, timeout time.Duration) (*Iterator, error) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var reply *Message
	var err error
	if c.blockingHost != nil {
		done := make(chan struct{})
		go func() {
			reply, err = c.blockingCallBody(ctx, destination, path, iface, member, body)
			close(done)
		}()
		c.block(done)
	} else {
		reply, err = c.blockingCallBody(ctx, destination, path, iface, member, body)
	}
	if err != nil {
		return nil, err
	}
	return reply.Body(), nil
}

// block waits for done using host if one is configured, otherwise parks
// the calling goroutine directly. Shared by CallTimeout's context-based
// wait path when a BlockingHost is installed on the Conn.
func (c *Conn) block(done <-chan struct{}) {
	if c.blockingHost == nil {
		<-done
		return
	}
	finished := make(chan struct{})
	go func() {
		<-done
		c.blockingHost.Unblock()
		close(finished)
	}()
	c.blockingHost.Block()
	<-finished
}

// WithBlockingHost installs host's Block/Unblock hooks, used by
// CallTimeout's internal wait when the embedding application drives its
// own event loop instead of using bare goroutines.
func WithBlockingHost(host BlockingHost) ConnOption {
	return func(c *Conn) { c.blockingHost = &host }
}
