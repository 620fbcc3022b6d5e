package adbus

import (
	"context"
	"fmt"
)

// Proxy is a client-side handle bound to one remote object (destination +
// path), per spec.md §4.J. It is a thin convenience wrapper over Conn's
// Call/AddMatch primitives; holding a Proxy is optional, Conn alone is
// enough to talk to the bus.
type Proxy struct {
	conn        *Conn
	destination string
	path        string
}

// NewProxy creates a Proxy bound to destination's object at path.
func NewProxy(conn *Conn, destination, path string) *Proxy {
	return &Proxy{conn: conn, destination: destination, path: path}
}

// Destination returns the proxy's well-known or unique bus name target.
func (p *Proxy) Destination() string { return p.destination }

// Path returns the proxy's object path.
func (p *Proxy) Path() string { return p.path }

// Call builds a method call against this proxy's object. The returned
// CallBuilder lets callers append arguments before choosing a blocking
// or asynchronous send.
func (p *Proxy) Call(iface, member string) *CallBuilder {
	return &CallBuilder{
		proxy:  p,
		iface:  iface,
		member: member,
		body:   NewBuffer(p.conn.order),
	}
}

// CallBuilder accumulates a method call's arguments before sending, per
// spec.md §4.J.
type CallBuilder struct {
	proxy  *Proxy
	iface  string
	member string
	body   *Buffer
	err    error
}

func (b *CallBuilder) fail(err error) *CallBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Arg appends one scalar argument using its inferred D-Bus signature; use
// the Append* methods below for fine control, or Body to build a
// container argument directly.
func (b *CallBuilder) Arg(v any) *CallBuilder {
	switch x := v.(type) {
	case byte:
		b.body.AppendByte(x)
	case bool:
		b.body.AppendBool(x)
	case int16:
		b.body.AppendInt16(x)
	case uint16:
		b.body.AppendUint16(x)
	case int32:
		b.body.AppendInt32(x)
	case uint32:
		b.body.AppendUint32(x)
	case int64:
		b.body.AppendInt64(x)
	case uint64:
		b.body.AppendUint64(x)
	case float64:
		b.body.AppendDouble(x)
	case string:
		b.body.AppendString(x)
	case Variant:
		if err := AppendVariantValue(b.body, x); err != nil {
			return b.fail(err)
		}
	default:
		return b.fail(fmt.Errorf("adbus: CallBuilder.Arg: unsupported type %T, use Body() directly", v))
	}
	return b
}

// Body exposes the underlying Buffer for building container arguments
// (arrays, structs, dicts) that Arg cannot express.
func (b *CallBuilder) Body() *Buffer { return b.body }

// Block sends the call and waits for its reply (or ctx cancellation),
// returning the method_return's body iterator.
func (b *CallBuilder) Block(ctx context.Context) (*Iterator, error) {
	if b.err != nil {
		return nil, b.err
	}
	reply, err := b.proxy.conn.blockingCallBody(ctx, b.proxy.destination, b.proxy.path, b.iface, b.member, b.body)
	if err != nil {
		return nil, err
	}
	return reply.Body(), nil
}

// Async sends the call without blocking, invoking fn with the eventual
// reply.
func (b *CallBuilder) Async(fn ReplyFunc) (uint32, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.proxy.conn.Call(b.proxy.destination, b.proxy.path, b.iface, b.member, b.body, fn)
}

// GetProperty reads a single property via org.freedesktop.DBus.Properties.Get.
func (p *Proxy) GetProperty(ctx context.Context, iface, name string) (Variant, error) {
	it, err := p.Call("org.freedesktop.DBus.Properties", "Get").
		Arg(iface).Arg(name).Block(ctx)
	if err != nil {
		return Variant{}, err
	}
	v, err := it.BeginVariant()
	if err != nil {
		return Variant{}, err
	}
	return ReadVariantValue(v)
}

// SetProperty writes a single property via org.freedesktop.DBus.Properties.Set.
func (p *Proxy) SetProperty(ctx context.Context, iface, name string, value Variant) error {
	cb := p.Call("org.freedesktop.DBus.Properties", "Set").Arg(iface).Arg(name)
	if err := AppendVariantValue(cb.body, value); err != nil {
		return err
	}
	_, err := cb.Block(ctx)
	return err
}

// GetAllProperties reads every property of iface in one round trip.
func (p *Proxy) GetAllProperties(ctx context.Context, iface string) (map[string]Variant, error) {
	it, err := p.Call("org.freedesktop.DBus.Properties", "GetAll").Arg(iface).Block(ctx)
	if err != nil {
		return nil, err
	}
	arr, err := it.BeginArray()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Variant)
	for arr.InArray() {
		elem := arr.Next()
		e, err := elem.BeginDictEntry()
		if err != nil {
			return nil, err
		}
		key, err := e.ReadString()
		if err != nil {
			return nil, err
		}
		vi, err := e.BeginVariant()
		if err != nil {
			return nil, err
		}
		val, err := ReadVariantValue(vi)
		if err != nil {
			return nil, err
		}
		e.AdvancePastVariant(vi)
		elem.AdvancePastDictEntry(e)
		arr.Advance(elem)
		out[key] = val
	}
	return out, nil
}

// OnSignal registers fn for signals named member on iface, scoped to this
// proxy's destination and path. Returns the match id for RemoveMatch.
func (p *Proxy) OnSignal(iface, member string, fn SignalFunc) uint64 {
	return p.conn.AddMatch(MatchRule{
		Type:      TypeSignal,
		Sender:    p.destination,
		Interface: iface,
		Member:    member,
		Path:      p.path,
	}, fn)
}
