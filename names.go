package adbus

import "context"

// NameFlags controls RequestName's behavior when the requested name is
// already owned, per org.freedesktop.DBus's RequestName semantics.
type NameFlags uint32

const (
	NameFlagAllowReplacement NameFlags = 1 << 0
	NameFlagReplaceExisting  NameFlags = 1 << 1
	NameFlagDoNotQueue       NameFlags = 1 << 2
)

// RequestNameReply mirrors org.freedesktop.DBus.RequestName's integer
// result codes.
type RequestNameReply uint32

const (
	NameReplyPrimaryOwner RequestNameReply = 1
	NameReplyInQueue      RequestNameReply = 2
	NameReplyExists       RequestNameReply = 3
	NameReplyAlreadyOwner RequestNameReply = 4
)

// busProxy returns a Proxy bound to the bus driver object itself,
// org.freedesktop.DBus at /org/freedesktop/DBus.
func (c *Conn) busProxy() *Proxy {
	return NewProxy(c, busDestination, busPath)
}

// RequestName asks the bus to assign name to this connection, a thin
// wrapper over the generic call path the way the original library's
// ergonomic helpers sit on top of its core method-call primitive.
func (c *Conn) RequestName(ctx context.Context, name string, flags NameFlags) (RequestNameReply, error) {
	if err := ValidateInterfaceName(name); err != nil {
		return 0, err
	}
	it, err := c.busProxy().Call(busInterface, "RequestName").Arg(name).Arg(uint32(flags)).Block(ctx)
	if err != nil {
		return 0, err
	}
	n, err := it.ReadUint32()
	return RequestNameReply(n), err
}

// ReleaseName releases a name previously obtained via RequestName.
func (c *Conn) ReleaseName(ctx context.Context, name string) error {
	_, err := c.busProxy().Call(busInterface, "ReleaseName").Arg(name).Block(ctx)
	return err
}

// NameOwnerChangedFunc handles a org.freedesktop.DBus.NameOwnerChanged
// signal: name changed ownership from oldOwner (empty if it had none) to
// newOwner (empty if it now has none).
type NameOwnerChangedFunc func(name, oldOwner, newOwner string)

// OnNameOwnerChanged subscribes to NameOwnerChanged signals for name,
// decoding the string triple into fn's arguments; an empty name matches
// every name. The match rule is registered on the proxy's Conn and is
// scoped to the bus driver (org.freedesktop.DBus at
// /org/freedesktop/DBus), whatever the proxy's own destination and path.
func (p *Proxy) OnNameOwnerChanged(name string, fn NameOwnerChangedFunc) uint64 {
	return p.conn.AddMatch(MatchRule{
		Type:      TypeSignal,
		Sender:    busDestination,
		Interface: busInterface,
		Member:    "NameOwnerChanged",
		Path:      busPath,
	}, func(m *Message) {
		it := m.Body()
		changedName, err := it.ReadString()
		if err != nil || (name != "" && changedName != name) {
			return
		}
		oldOwner, err := it.ReadString()
		if err != nil {
			return
		}
		newOwner, err := it.ReadString()
		if err != nil {
			return
		}
		fn(changedName, oldOwner, newOwner)
	})
}
