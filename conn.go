package adbus

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ohporter/adbus/auth"
	"github.com/ohporter/adbus/internal/logger"
	"github.com/ohporter/adbus/metrics"
)

// ConnState is a Conn's position in the handshake/lifecycle state
// machine described in spec.md §4.G.
type ConnState int32

const (
	StateCreated ConnState = iota
	StateAuthenticating
	StateAuthenticated
	StateHelloSent
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateHelloSent:
		return "hello_sent"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const busDestination = "org.freedesktop.DBus"
const busPath = "/org/freedesktop/DBus"
const busInterface = "org.freedesktop.DBus"

// ShouldProxyFunc reports whether the calling goroutine is not the one
// the application wants handler callbacks delivered on (e.g. it is the
// connection's own read loop, and callbacks must run on a GUI thread).
type ShouldProxyFunc func() bool

// DispatchProxyFunc hands fn to whatever mechanism the host toolkit uses
// to run code on its preferred thread (e.g. posting to an event queue).
type DispatchProxyFunc func(fn func())

// Conn is a single multiplexed connection to a D-Bus bus or peer, per
// spec.md §4.G. Exactly one goroutine (the read loop, started by
// Authenticate) parses incoming bytes; all other methods are safe to call
// concurrently from any goroutine.
type Conn struct {
	transport Transport
	reader    *bufio.Reader
	writeMu   sync.Mutex

	order  binary.ByteOrder
	serial atomic.Uint32
	state  atomic.Int32

	uniqueName atomic.Value // string

	matches *matchTable
	replies *replyTable
	binds   *bindTree

	metrics metrics.Metrics

	shouldProxy  ShouldProxyFunc
	dispatchFunc DispatchProxyFunc
	blockingHost *BlockingHost

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
	wg        sync.WaitGroup

	refs atomic.Int32

	// connID is a correlation id attached to every log line this
	// connection emits, generated before the bus assigns a unique name
	// (which is not known until Hello completes) so handshake failures
	// are still traceable back to one connection.
	connID string
}

// ConnOption configures a Conn at construction time.
type ConnOption func(*Conn)

// WithMetrics attaches m (which may be nil) to record connection
// activity.
func WithMetrics(m metrics.Metrics) ConnOption {
	return func(c *Conn) { c.metrics = m }
}

// WithThreadProxy installs the pair of callbacks a host UI toolkit uses
// to run dispatch on its own thread, per spec.md §4.L. should reports
// whether the current goroutine needs proxying (normally "am I the read
// loop goroutine"); proxy hands work to the host's run loop.
func WithThreadProxy(should ShouldProxyFunc, proxy DispatchProxyFunc) ConnOption {
	return func(c *Conn) {
		c.shouldProxy = should
		c.dispatchFunc = proxy
	}
}

// NewConn wraps an already-dialed transport in a Conn, in StateCreated.
// Call Authenticate then Hello (or Connect, which does both) before using
// it to exchange application messages.
func NewConn(transport Transport, opts ...ConnOption) *Conn {
	c := &Conn{
		transport: transport,
		reader:    bufio.NewReaderSize(transport, 64*1024),
		order:     binary.LittleEndian,
		matches:   newMatchTable(),
		replies:   newReplyTable(),
		binds:     newBindTree(),
		closed:    make(chan struct{}),
		connID:    uuid.NewString(),
	}
	c.uniqueName.Store("")
	c.refs.Store(1)
	for _, opt := range opts {
		opt(c)
	}
	c.bindBuiltins()
	return c
}

// logFields returns the Fields this connection attaches to every *Ctx log
// call, threading member/serial through from call sites that have them.
func (c *Conn) logFields(serial uint32, member string) logger.Fields {
	return logger.Fields{ConnID: c.connID, Connection: c.UniqueName(), Serial: serial, Member: member}
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() ConnState { return ConnState(c.state.Load()) }

// IsConnected reports whether Hello has completed and the connection has
// not since closed.
func (c *Conn) IsConnected() bool { return c.State() == StateConnected }

// UniqueName returns the bus-assigned unique name (":1.42"-shaped),
// valid once Hello has completed.
func (c *Conn) UniqueName() string {
	s, _ := c.uniqueName.Load().(string)
	return s
}

// Ref increments the connection's reference count.
func (c *Conn) Ref() *Conn { c.refs.Add(1); return c }

// Unref decrements the reference count, closing the connection when it
// reaches zero.
func (c *Conn) Unref() {
	if c.refs.Add(-1) == 0 {
		c.Close()
	}
}

// Authenticate runs the SASL handshake over the transport using the given
// mechanisms in order, then starts the background read loop. On success
// the Conn moves from StateCreated to StateAuthenticated.
func (c *Conn) Authenticate(mechanisms ...auth.Mechanism) error {
	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateAuthenticating)) {
		return fmt.Errorf("adbus: Authenticate called out of order, state is %s", c.State())
	}
	if len(mechanisms) == 0 {
		mechanisms = []auth.Mechanism{auth.NewExternal()}
	}
	neg := auth.NewNegotiator(c.transport, mechanisms...)
	result, err := neg.Run(false)
	if err != nil {
		c.state.Store(int32(StateCreated))
		for _, m := range mechanisms {
			c.recordAuthResult(m.Name(), false)
		}
		return fmt.Errorf("adbus: %w: %v", ErrAuthFailed, err)
	}
	c.recordAuthResult(result.Mechanism, true)
	logger.Info("dbus authentication succeeded", "mechanism", result.Mechanism)

	c.state.Store(int32(StateAuthenticated))
	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// Hello sends the mandatory org.freedesktop.DBus.Hello call every bus
// connection must make before doing anything else, recording the
// bus-assigned unique name. Moves the Conn to StateConnected.
func (c *Conn) Hello() (string, error) {
	if !c.state.CompareAndSwap(int32(StateAuthenticated), int32(StateHelloSent)) {
		return "", fmt.Errorf("adbus: Hello called out of order, state is %s", c.State())
	}
	reply, err := c.blockingCall(context.Background(), busDestination, busPath, busInterface, "Hello", "")
	if err != nil {
		c.state.Store(int32(StateAuthenticated))
		return "", err
	}
	name, err := reply.Body().ReadString()
	if err != nil {
		return "", newProtocolError("Hello reply missing unique name", err)
	}
	c.uniqueName.Store(name)
	c.state.Store(int32(StateConnected))
	logger.Info("dbus connection established", "unique_name", name)
	return name, nil
}

// Connect dials a transport from a D-Bus address string, authenticates
// and sends Hello in one step, the common case for application code.
func Connect(address string, opts ...ConnOption) (*Conn, error) {
	addrs, err := ParseAddresses(address)
	if err != nil {
		return nil, err
	}
	t, err := DialAddress(addrs)
	if err != nil {
		return nil, fmt.Errorf("adbus: dialing %s: %w", address, err)
	}
	c := NewConn(t, opts...)
	if err := c.Authenticate(); err != nil {
		t.Close()
		return nil, err
	}
	if _, err := c.Hello(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NextSerial returns the next message serial, starting at 1 (serial 0 is
// reserved as "no reply expected" in spec.md §3).
func (c *Conn) NextSerial() uint32 {
	return c.serial.Add(1)
}

// sendRaw writes a fully-encoded message to the transport. Writes are
// serialized: the wire protocol has no message framing beyond byte
// order, so two concurrent partial writes would corrupt the stream.
func (c *Conn) sendRaw(buf []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.transport.Write(buf)
	if err != nil {
		return fmt.Errorf("adbus: write: %w", err)
	}
	c.recordSent("unknown", len(buf))
	return nil
}

// recordSent, recordReceived, recordCall and recordAuthResult guard every
// metrics call site with a nil check: c.metrics is nil whenever
// WithMetrics was never passed, or was passed metrics.NewPrometheus()
// with collection disabled, and a nil Metrics interface value panics on
// method dispatch unlike a nil pointer satisfying a nil-safe method set.
func (c *Conn) recordSent(msgType string, n int) {
	if c.metrics != nil {
		c.metrics.MessageSent(msgType, n)
	}
}

func (c *Conn) recordReceived(msgType string, n int) {
	if c.metrics != nil {
		c.metrics.MessageReceived(msgType, n)
	}
}

func (c *Conn) recordCall(member string, d time.Duration, isErr bool) {
	if c.metrics != nil {
		c.metrics.CallCompleted(member, d, isErr)
	}
}

func (c *Conn) recordAuthResult(mechanism string, ok bool) {
	if c.metrics != nil {
		c.metrics.AuthMechanismResult(mechanism, ok)
	}
}

// Send finalizes and writes m, assigning it a fresh serial unless one was
// already set, and returns the serial used.
func (c *Conn) Send(m *Marshaller) (uint32, error) {
	return m.Send(c)
}

// SendSignal emits a signal from path/iface/member with the given body.
func (c *Conn) SendSignal(path, iface, member string, body *Buffer) error {
	m := NewMarshaller(c.order, TypeSignal)
	m.SetPath(path)
	m.SetInterface(iface)
	m.SetMember(member)
	if body != nil {
		m.Body = body
	}
	_, err := c.Send(m)
	return err
}

// Call sends a method_call asynchronously and arranges for fn to run
// (proxied through the thread-proxy hooks if configured) when the
// method_return or error reply arrives. It returns the serial used, which
// callers may pass to CancelCall.
func (c *Conn) Call(destination, path, iface, member string, body *Buffer, fn ReplyFunc) (uint32, error) {
	return c.callWithGroup(destination, path, iface, member, body, 0, fn)
}

func (c *Conn) callWithGroup(destination, path, iface, member string, body *Buffer, group uint64, fn ReplyFunc) (uint32, error) {
	if c.State() < StateAuthenticated {
		return 0, ErrNotConnected
	}
	m := NewMarshaller(c.order, TypeMethodCall)
	m.SetDestination(destination)
	m.SetPath(path)
	if iface != "" {
		m.SetInterface(iface)
	}
	m.SetMember(member)
	if body != nil {
		m.Body = body
	}
	serial := c.NextSerial()
	m.SetSerial(serial)

	start := time.Now()
	c.replies.add(serial, group, func(reply *Message, replyErr *RemoteError) {
		c.recordCall(member, time.Since(start), replyErr != nil)
		c.runDispatched(func() { fn(reply, replyErr) })
	})
	if _, err := c.Send(m); err != nil {
		c.replies.remove(serial)
		return 0, err
	}
	return serial, nil
}

// CancelCall aborts a pending asynchronous call registered by Call,
// preventing its ReplyFunc from running if the reply has not yet arrived.
func (c *Conn) CancelCall(serial uint32) bool {
	return c.replies.remove(serial)
}

// Bind exports iface at path, per spec.md §4.H.
func (c *Conn) Bind(path string, iface *Interface) (*Binding, error) {
	if err := c.binds.bind(path, iface); err != nil {
		return nil, err
	}
	return &Binding{conn: c, path: path, iface: iface.Name}, nil
}

func (c *Conn) unbind(path, ifaceName string) {
	c.binds.unbind(path, ifaceName)
}

// AddMatch registers a local signal filter. It does not, by itself, ask a
// message bus to route matching signals to this connection; call
// AddBusMatch for that in addition when talking to a bus (as opposed to a
// direct peer-to-peer connection, which delivers all signals).
func (c *Conn) AddMatch(rule MatchRule, fn SignalFunc) uint64 {
	return c.matches.add(rule, fn)
}

// RemoveMatch unregisters a local signal filter previously returned by
// AddMatch.
func (c *Conn) RemoveMatch(id uint64) bool {
	return c.matches.remove(id)
}

// AddBusMatch asks the message bus to start routing signals matching
// ruleString (the textual match rule grammar, e.g.
// "type='signal',interface='org.freedesktop.DBus'") to this connection.
func (c *Conn) AddBusMatch(ruleString string) error {
	body := NewBuffer(c.order)
	body.AppendString(ruleString)
	_, err := c.blockingCallBody(context.Background(), busDestination, busPath, busInterface, "AddMatch", body)
	return err
}

// RemoveBusMatch is the inverse of AddBusMatch.
func (c *Conn) RemoveBusMatch(ruleString string) error {
	body := NewBuffer(c.order)
	body.AppendString(ruleString)
	_, err := c.blockingCallBody(context.Background(), busDestination, busPath, busInterface, "RemoveMatch", body)
	return err
}

// runDispatched runs fn directly, or proxies it through the configured
// thread-proxy hooks if the caller is on the read-loop goroutine and a
// host toolkit requested its own thread for callbacks (spec.md §4.L).
func (c *Conn) runDispatched(fn func()) {
	if c.shouldProxy != nil && c.dispatchFunc != nil && c.shouldProxy() {
		c.dispatchFunc(fn)
		return
	}
	fn()
}

// readLoop is the sole goroutine that reads and parses bytes off the
// transport, per spec.md §4.G. Every parsed Message is handed to dispatch
// before the next read begins: message ordering on one connection is
// preserved end to end.
func (c *Conn) readLoop() {
	defer c.wg.Done()
	for {
		msg, err := c.readOneMessage()
		if err != nil {
			c.fail(err)
			return
		}
		c.recordReceived(msg.Type.String(), len(msg.body))
		c.dispatch(msg)
	}
}

// readOneMessage reads exactly one framed message: the fixed 16-byte
// prefix, then the header fields array and body whose combined length
// that prefix declares.
func (c *Conn) readOneMessage() (*Message, error) {
	var fixed [16]byte
	if _, err := fillBuffer(c.reader, fixed[:]); err != nil {
		return nil, err
	}
	var order binary.ByteOrder = binary.LittleEndian
	if fixed[0] == 'B' {
		order = binary.BigEndian
	}
	bodyLen := order.Uint32(fixed[4:8])
	fieldsLen := order.Uint32(fixed[12:16])

	headerEnd := 16 + int(fieldsLen)
	total := headerEnd + padding(headerEnd, 8) + int(bodyLen)
	if total > maxMessageSize {
		return nil, newProtocolError("message exceeds maximum size", nil)
	}

	buf := make([]byte, total)
	copy(buf, fixed[:])
	if _, err := fillBuffer(c.reader, buf[16:]); err != nil {
		return nil, err
	}
	msg, err := parseMessage(buf)
	if err != nil {
		return nil, newProtocolError("parsing incoming message", err)
	}
	return msg, nil
}

func fillBuffer(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// dispatch routes one parsed message according to spec.md §4.G's
// algorithm: replies first (cheapest lookup, most latency-sensitive),
// then signals against the match table, then method calls against local
// bindings.
func (c *Conn) dispatch(msg *Message) {
	switch msg.Type {
	case TypeMethodReturn, TypeError:
		c.dispatchReply(msg)
	case TypeSignal:
		c.runDispatched(func() { c.matches.dispatch(msg) })
	case TypeMethodCall:
		c.runDispatched(func() { c.matches.dispatch(msg) })
		c.dispatchMethodCall(msg)
	default:
		logger.Warn("dropping message of unknown type", "type", int(msg.Type))
	}
}

func (c *Conn) dispatchReply(msg *Message) {
	fn, ok := c.replies.take(msg.ReplySerial)
	if !ok {
		return
	}
	if msg.Type == TypeError {
		args, _ := collectVariants(msg)
		fn(nil, &RemoteError{Name: msg.ErrorName, Args: args})
		return
	}
	fn(msg, nil)
}

func (c *Conn) dispatchMethodCall(msg *Message) {
	c.runDispatched(func() {
		reply, replyErr := c.invokeMethod(msg)
		if msg.Flags&FlagNoReplyExpected != 0 {
			return
		}
		var m *Marshaller
		if replyErr != nil {
			m = NewMarshaller(c.order, TypeError)
			m.SetReplySerial(msg.Serial)
			m.SetErrorName(replyErr.name())
			m.Body.AppendString(replyErr.Error())
		} else {
			m = NewMarshaller(c.order, TypeMethodReturn)
			m.SetReplySerial(msg.Serial)
			m.Body = reply
		}
		if msg.Sender != "" {
			m.SetDestination(msg.Sender)
		}
		if _, err := c.Send(m); err != nil {
			logger.Warn("failed to send method reply", "member", msg.Member, "error", err)
		}
	})
}

// methodErr normalizes an arbitrary handler error into a D-Bus error
// name/message pair.
type methodErr struct {
	errName string
	err     error
}

func (e *methodErr) Error() string { return e.err.Error() }
func (e *methodErr) name() string  { return e.errName }

func normalizeHandlerError(err error) *methodErr {
	if he, ok := err.(*HandlerError); ok {
		return &methodErr{errName: he.Name, err: he}
	}
	return &methodErr{errName: "org.freedesktop.DBus.Error.Failed", err: err}
}

// propertiesInterface is the standard meta-interface through which every
// bound interface's properties are read and written remotely.
const propertiesInterface = "org.freedesktop.DBus.Properties"

// invokeMethod looks up and runs the handler for msg, implementing the
// no-interface-specified fallback of spec.md §4.G step 2: when the
// caller omitted an interface, any bound interface at the path exposing
// that member name is eligible, unless more than one is, in which case
// the call is rejected as ambiguous rather than guessing.
func (c *Conn) invokeMethod(msg *Message) (*Buffer, *methodErr) {
	if msg.Interface == propertiesInterface {
		return c.invokeProperties(msg)
	}

	var iface *Interface
	if msg.Interface != "" {
		found, ok := c.binds.lookup(msg.Path, msg.Interface)
		if !ok {
			return nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownInterface", err: fmt.Errorf("no interface %q at %q", msg.Interface, msg.Path)}
		}
		iface = found
	} else {
		var candidates []*Interface
		for _, candidate := range c.binds.lookupAny(msg.Path) {
			if candidate.HasMember(msg.Member) {
				candidates = append(candidates, candidate)
			}
		}
		switch len(candidates) {
		case 0:
			return nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownMethod", err: fmt.Errorf("no object at %q exports %q", msg.Path, msg.Member)}
		case 1:
			iface = candidates[0]
		default:
			return nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownMethod", err: fmt.Errorf("member %q at %q is exposed by %d interfaces; a caller must name one", msg.Member, msg.Path, len(candidates))}
		}
	}

	method, ok := iface.FindMethod(msg.Member)
	if !ok {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownMethod", err: fmt.Errorf("interface %q has no method %q", iface.Name, msg.Member)}
	}

	reply := NewBuffer(c.order)
	ctx := logger.WithFields(context.Background(), c.logFields(msg.Serial, msg.Member))
	ctx = context.WithValue(ctx, pathContextKey{}, msg.Path)
	if err := method.Handler(ctx, msg.Body(), reply); err != nil {
		return nil, normalizeHandlerError(err)
	}
	return reply, nil
}

// invokeProperties dispatches org.freedesktop.DBus.Properties' three
// well-known members to the target interface's bound Property getters and
// setters, per spec.md §4.G step 2.
func (c *Conn) invokeProperties(msg *Message) (*Buffer, *methodErr) {
	switch msg.Member {
	case "Get":
		return c.invokePropertyGet(msg)
	case "Set":
		return c.invokePropertySet(msg)
	case "GetAll":
		return c.invokePropertyGetAll(msg)
	default:
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownMethod", err: fmt.Errorf("%s has no method %q", propertiesInterface, msg.Member)}
	}
}

func (c *Conn) lookupPropertyTarget(path, ifaceName, propName string) (*Interface, *Property, *methodErr) {
	iface, ok := c.binds.lookup(path, ifaceName)
	if !ok {
		return nil, nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownInterface", err: fmt.Errorf("no interface %q at %q", ifaceName, path)}
	}
	prop, ok := iface.FindProperty(propName)
	if !ok {
		return nil, nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownProperty", err: fmt.Errorf("interface %q has no property %q", ifaceName, propName)}
	}
	return iface, prop, nil
}

func (c *Conn) invokePropertyGet(msg *Message) (*Buffer, *methodErr) {
	args := msg.Body()
	ifaceName, err := args.ReadString()
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	propName, err := args.ReadString()
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	_, prop, mErr := c.lookupPropertyTarget(msg.Path, ifaceName, propName)
	if mErr != nil {
		return nil, mErr
	}
	if prop.Getter == nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.PropertyWriteOnly", err: fmt.Errorf("property %q is write-only", propName)}
	}
	ctx := logger.WithFields(context.Background(), c.logFields(msg.Serial, msg.Member))
	v, err := prop.Getter(ctx)
	if err != nil {
		return nil, normalizeHandlerError(err)
	}
	reply := NewBuffer(c.order)
	if err := AppendVariantValue(reply, v); err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.Failed", err: err}
	}
	return reply, nil
}

func (c *Conn) invokePropertySet(msg *Message) (*Buffer, *methodErr) {
	args := msg.Body()
	ifaceName, err := args.ReadString()
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	propName, err := args.ReadString()
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	vi, err := args.BeginVariant()
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	value, err := ReadVariantValue(vi)
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	_, prop, mErr := c.lookupPropertyTarget(msg.Path, ifaceName, propName)
	if mErr != nil {
		return nil, mErr
	}
	if prop.Setter == nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.PropertyReadOnly", err: fmt.Errorf("property %q is read-only", propName)}
	}
	ctx := logger.WithFields(context.Background(), c.logFields(msg.Serial, msg.Member))
	if err := prop.Setter(ctx, value); err != nil {
		return nil, normalizeHandlerError(err)
	}
	return NewBuffer(c.order), nil
}

func (c *Conn) invokePropertyGetAll(msg *Message) (*Buffer, *methodErr) {
	args := msg.Body()
	ifaceName, err := args.ReadString()
	if err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.InvalidArgs", err: err}
	}
	iface, ok := c.binds.lookup(msg.Path, ifaceName)
	if !ok {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.UnknownInterface", err: fmt.Errorf("no interface %q at %q", ifaceName, msg.Path)}
	}

	ctx := logger.WithFields(context.Background(), c.logFields(msg.Serial, msg.Member))
	reply := NewBuffer(c.order)
	if err := reply.BeginArray("{sv}"); err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.Failed", err: err}
	}
	for _, name := range iface.Members() {
		prop, ok := iface.FindProperty(name)
		if !ok || prop.Getter == nil {
			continue
		}
		v, err := prop.Getter(ctx)
		if err != nil {
			return nil, normalizeHandlerError(err)
		}
		reply.BeginDictEntry()
		reply.AppendString(name)
		if err := AppendVariantValue(reply, v); err != nil {
			return nil, &methodErr{errName: "org.freedesktop.DBus.Error.Failed", err: err}
		}
		if err := reply.EndDictEntry(); err != nil {
			return nil, &methodErr{errName: "org.freedesktop.DBus.Error.Failed", err: err}
		}
	}
	if err := reply.EndArray(); err != nil {
		return nil, &methodErr{errName: "org.freedesktop.DBus.Error.Failed", err: err}
	}
	return reply, nil
}

func collectVariants(msg *Message) ([]Variant, error) {
	it := msg.Body()
	var out []Variant
	for !it.Done() {
		raw, sig, err := it.Value()
		if err != nil {
			return out, err
		}
		sub := NewIterator(it.order, raw, sig, 0)
		if len(sig) == 1 {
			v, err := readScalarAsVariant(sub, Type(sig[0]))
			if err == nil {
				out = append(out, v)
				continue
			}
		}
		out = append(out, Variant{Signature: sig, Value: raw})
	}
	return out, nil
}

func readScalarAsVariant(it *Iterator, t Type) (Variant, error) {
	switch t {
	case TypeString:
		s, err := it.ReadString()
		return Variant{Signature: "s", Value: s}, err
	case TypeObjectPath:
		s, err := it.ReadObjectPath()
		return Variant{Signature: "o", Value: s}, err
	default:
		return Variant{}, fmt.Errorf("adbus: unsupported scalar capture %q", byte(t))
	}
}

// blockingCall is a thin helper used by Hello and other internal
// bus-protocol calls that have no body.
func (c *Conn) blockingCall(ctx context.Context, destination, path, iface, member string) (*Message, error) {
	return c.blockingCallBody(ctx, destination, path, iface, member, nil)
}

func (c *Conn) blockingCallBody(ctx context.Context, destination, path, iface, member string, body *Buffer) (*Message, error) {
	type result struct {
		msg *Message
		err error
	}
	ch := make(chan result, 1)
	_, err := c.Call(destination, path, iface, member, body, func(reply *Message, replyErr *RemoteError) {
		if replyErr != nil {
			ch <- result{nil, replyErr}
			return
		}
		ch <- result{reply, nil}
	})
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, ErrClosed
	}
}

// fail records a terminal read-loop error and closes the connection.
func (c *Conn) fail(err error) {
	if c.State() != StateClosed {
		logger.Warn("dbus connection read loop exiting", "error", err)
	}
	c.Close()
}

// Close tears down the connection: it stops accepting new work, closes
// the transport, releases every binding, and fails every pending call
// with ErrNoReply. Safe to call more than once and from any goroutine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.closed)
		c.closeErr = c.transport.Close()
		c.binds.releaseAll()
		c.failAllPending()
	})
	return c.closeErr
}

func (c *Conn) failAllPending() {
	c.replies.mu.Lock()
	pending := make([]ReplyFunc, 0, len(c.replies.entries))
	for _, e := range c.replies.entries {
		pending = append(pending, e.fn)
	}
	c.replies.entries = make(map[replyKey]*replyEntry)
	c.replies.mu.Unlock()
	for _, fn := range pending {
		fn(nil, &RemoteError{Name: "org.freedesktop.DBus.Error.NoReply", Args: []Variant{{Signature: "s", Value: ErrNoReply.Error()}}})
	}
}

// Wait blocks until the read loop has exited (normally because Close was
// called).
func (c *Conn) Wait() { c.wg.Wait() }
