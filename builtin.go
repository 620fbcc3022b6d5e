package adbus

import (
	"context"
	"crypto/sha1"
	"os"

	"github.com/ohporter/adbus/introspect"
)

// bindBuiltins exports org.freedesktop.DBus.Peer and
// org.freedesktop.DBus.Introspectable at "/" on every new Conn, so a peer
// introspecting or pinging this connection gets a real answer without the
// application registering anything itself, the same auto-reply behavior
// the original implementation's connection.c provides.
func (c *Conn) bindBuiltins() {
	peer, err := NewInterface("org.freedesktop.DBus.Peer")
	if err != nil {
		return
	}
	peer.AddMethod("Ping", Method{
		Handler: func(ctx context.Context, args *Iterator, reply *Buffer) error {
			return nil
		},
	})
	peer.AddMethod("GetMachineId", Method{
		OutSignature: "s",
		Handler: func(ctx context.Context, args *Iterator, reply *Buffer) error {
			reply.AppendString(machineID())
			return nil
		},
	})

	introspectable, err := NewInterface("org.freedesktop.DBus.Introspectable")
	if err != nil {
		return
	}
	introspectable.AddMethod("Introspect", Method{
		OutSignature: "s",
		Handler: func(ctx context.Context, args *Iterator, reply *Buffer) error {
			fields := fieldsFromContext(ctx)
			doc := introspect.Tree(c.introspectableInterfaces(fields.Path), c.binds.children(fields.Path))
			reply.AppendString(doc)
			return nil
		},
	})

	c.Bind("/", peer)
	c.Bind("/", introspectable)
}

// introspectableInterfaces adapts the Interface values bound at path into
// the shape introspect.Tree wants, keeping the introspect package free of
// any dependency back on Conn/Interface internals.
func (c *Conn) introspectableInterfaces(path string) []introspect.InterfaceDoc {
	ifaces := c.binds.lookupAny(path)
	out := make([]introspect.InterfaceDoc, 0, len(ifaces))
	for _, iface := range ifaces {
		out = append(out, describeInterface(iface))
	}
	return out
}

func describeInterface(iface *Interface) introspect.InterfaceDoc {
	doc := introspect.InterfaceDoc{Name: iface.Name}
	for _, name := range iface.Members() {
		if m, ok := iface.FindMethod(name); ok {
			doc.Methods = append(doc.Methods, introspect.MethodDoc{
				Name: name, InSignature: m.InSignature, OutSignature: m.OutSignature,
				ArgNames: m.ArgNames, ResultNames: m.ResultNames,
			})
			continue
		}
		if s, ok := iface.FindSignal(name); ok {
			doc.Signals = append(doc.Signals, introspect.SignalDoc{
				Name: name, Signature: s.Signature, ArgNames: s.ArgNames,
			})
			continue
		}
		if p, ok := iface.FindProperty(name); ok {
			doc.Properties = append(doc.Properties, introspect.PropertyDoc{
				Name: name, Signature: p.Signature,
				ReadOnly: p.Setter == nil, WriteOnly: p.Getter == nil,
			})
		}
	}
	return doc
}

// fieldsFromContext recovers the object path a builtin Introspect call is
// answering for. Conn doesn't otherwise thread the path through the
// handler signature (spec.md §4.F's MethodFunc only carries args/reply),
// so the builtin binding stashes it via context the same way the
// connection-wide logger fields are threaded through invokeMethod.
func fieldsFromContext(ctx context.Context) struct{ Path string } {
	p, _ := ctx.Value(pathContextKey{}).(string)
	return struct{ Path string }{Path: p}
}

type pathContextKey struct{}

func machineID() string {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil && len(b) > 0 {
		return trimNewline(string(b))
	}
	sum := sha1.Sum([]byte(os.Getenv("HOSTNAME") + os.Getenv("HOME")))
	return hexString(sum[:])
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func hexString(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[2*i] = digits[c>>4]
		out[2*i+1] = digits[c&0xf]
	}
	return string(out)
}
