package adbus

import (
	"context"
	"testing"
)

func TestBindBuiltinsRegistersPeerAndIntrospectable(t *testing.T) {
	c := newTestConn(t)

	if _, ok := c.binds.lookup("/", "org.freedesktop.DBus.Peer"); !ok {
		t.Fatal("org.freedesktop.DBus.Peer not bound at / by default")
	}
	if _, ok := c.binds.lookup("/", "org.freedesktop.DBus.Introspectable"); !ok {
		t.Fatal("org.freedesktop.DBus.Introspectable not bound at / by default")
	}
}

func TestBuiltinPeerPingHandler(t *testing.T) {
	c := newTestConn(t)
	iface, ok := c.binds.lookup("/", "org.freedesktop.DBus.Peer")
	if !ok {
		t.Fatal("Peer interface not bound")
	}
	m, ok := iface.FindMethod("Ping")
	if !ok {
		t.Fatal("Ping method not registered")
	}
	reply := NewBuffer(c.order)
	if err := m.Handler(nil, nil, reply); err != nil {
		t.Fatalf("Ping handler: %v", err)
	}
}

func TestBuiltinPeerGetMachineIDHandler(t *testing.T) {
	c := newTestConn(t)
	iface, _ := c.binds.lookup("/", "org.freedesktop.DBus.Peer")
	m, ok := iface.FindMethod("GetMachineId")
	if !ok {
		t.Fatal("GetMachineId method not registered")
	}
	reply := NewBuffer(c.order)
	if err := m.Handler(nil, nil, reply); err != nil {
		t.Fatalf("GetMachineId handler: %v", err)
	}
	if reply.Signature() != "s" {
		t.Fatalf("reply signature = %q, want s", reply.Signature())
	}
}

func TestDescribeInterfaceCategorizesMembers(t *testing.T) {
	iface, _ := NewInterface("org.example.Iface")
	_ = iface.AddMethod("DoThing", Method{InSignature: "s", OutSignature: "i"})
	_ = iface.AddSignal("Changed", Signal{Signature: "s"})
	_ = iface.AddProperty("ReadOnlyProp", Property{Signature: "s", Getter: func(ctx context.Context) (Variant, error) {
		return Variant{}, nil
	}})

	doc := describeInterface(iface)
	if len(doc.Methods) != 1 || doc.Methods[0].Name != "DoThing" {
		t.Errorf("Methods = %+v, want one DoThing entry", doc.Methods)
	}
	if len(doc.Signals) != 1 || doc.Signals[0].Name != "Changed" {
		t.Errorf("Signals = %+v, want one Changed entry", doc.Signals)
	}
	if len(doc.Properties) != 1 || doc.Properties[0].Name != "ReadOnlyProp" {
		t.Errorf("Properties = %+v, want one ReadOnlyProp entry", doc.Properties)
	}
}

func TestHexString(t *testing.T) {
	got := hexString([]byte{0x01, 0xab, 0xff})
	if got != "01abff" {
		t.Errorf("hexString() = %q, want 01abff", got)
	}
}

func TestTrimNewline(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc\n", "abc"},
		{"abc\r\n", "abc"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := trimNewline(tc.in); got != tc.want {
			t.Errorf("trimNewline(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
