package adbus

import (
	"encoding/binary"
	"testing"
)

func nameOwnerChangedSignal(t *testing.T, name, oldOwner, newOwner string) *Message {
	t.Helper()
	m := NewMarshaller(binary.LittleEndian, TypeSignal)
	m.SetPath(busPath)
	m.SetInterface(busInterface)
	m.SetMember("NameOwnerChanged")
	m.SetSender(busDestination)
	m.Body.AppendString(name)
	m.Body.AppendString(oldOwner)
	m.Body.AppendString(newOwner)

	buf, err := m.Encode(1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := parseMessage(buf)
	if err != nil {
		t.Fatalf("parseMessage: %v", err)
	}
	return msg
}

func TestOnNameOwnerChangedDecodesSignal(t *testing.T) {
	c := newTestConn(t)
	p := NewProxy(c, busDestination, busPath)

	var gotName, gotOld, gotNew string
	var calls int
	p.OnNameOwnerChanged("", func(name, oldOwner, newOwner string) {
		gotName, gotOld, gotNew = name, oldOwner, newOwner
		calls++
	})

	c.matches.dispatch(nameOwnerChangedSignal(t, "org.example.Service", ":1.1", ":1.2"))

	if calls != 1 {
		t.Fatalf("callback invoked %d times, want 1", calls)
	}
	if gotName != "org.example.Service" || gotOld != ":1.1" || gotNew != ":1.2" {
		t.Fatalf("decoded (%q, %q, %q), want (org.example.Service, :1.1, :1.2)", gotName, gotOld, gotNew)
	}
}

func TestOnNameOwnerChangedFiltersByName(t *testing.T) {
	c := newTestConn(t)
	p := NewProxy(c, busDestination, busPath)

	var calls int
	p.OnNameOwnerChanged("org.example.Wanted", func(name, oldOwner, newOwner string) { calls++ })

	c.matches.dispatch(nameOwnerChangedSignal(t, "org.example.Other", ":1.1", ":1.2"))
	if calls != 0 {
		t.Fatalf("callback invoked for non-matching name, calls = %d", calls)
	}

	c.matches.dispatch(nameOwnerChangedSignal(t, "org.example.Wanted", ":1.1", ":1.2"))
	if calls != 1 {
		t.Fatalf("callback not invoked for matching name, calls = %d", calls)
	}
}
