package adbus

import (
	"encoding/binary"
	"testing"
)

func TestMarshalParseMethodCallRoundTrip(t *testing.T) {
	m := NewMarshaller(binary.LittleEndian, TypeMethodCall)
	m.SetPath("/org/example/Object")
	m.SetInterface("org.example.Iface")
	m.SetMember("DoThing")
	m.SetDestination("org.example.Service")
	m.Body.AppendString("hello")
	m.Body.AppendInt32(7)

	buf, err := m.Encode(1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	msg, err := parseMessage(buf)
	if err != nil {
		t.Fatalf("parseMessage: %v", err)
	}

	if msg.Type != TypeMethodCall {
		t.Errorf("Type = %v, want method_call", msg.Type)
	}
	if msg.Serial != 1 {
		t.Errorf("Serial = %d, want 1", msg.Serial)
	}
	if msg.Path != "/org/example/Object" {
		t.Errorf("Path = %q, want /org/example/Object", msg.Path)
	}
	if msg.Interface != "org.example.Iface" {
		t.Errorf("Interface = %q, want org.example.Iface", msg.Interface)
	}
	if msg.Member != "DoThing" {
		t.Errorf("Member = %q, want DoThing", msg.Member)
	}
	if msg.Destination != "org.example.Service" {
		t.Errorf("Destination = %q, want org.example.Service", msg.Destination)
	}
	if msg.BodySig != "si" {
		t.Errorf("BodySig = %q, want si", msg.BodySig)
	}

	body := msg.Body()
	s, err := body.ReadString()
	if err != nil || s != "hello" {
		t.Fatalf("body ReadString() = %q, %v, want hello, nil", s, err)
	}
	n, err := body.ReadInt32()
	if err != nil || n != 7 {
		t.Fatalf("body ReadInt32() = %v, %v, want 7, nil", n, err)
	}
}

func TestMarshalMethodReturnRoundTrip(t *testing.T) {
	m := NewMarshaller(binary.LittleEndian, TypeMethodReturn)
	m.SetReplySerial(5)
	m.Body.AppendUint32(200)

	buf, err := m.Encode(2)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	msg, err := parseMessage(buf)
	if err != nil {
		t.Fatalf("parseMessage: %v", err)
	}
	if !msg.HasReplySerial() || msg.ReplySerial != 5 {
		t.Fatalf("ReplySerial = %d, HasReplySerial = %v, want 5, true", msg.ReplySerial, msg.HasReplySerial())
	}
}

func TestMarshalValidatesRequiredFields(t *testing.T) {
	m := NewMarshaller(binary.LittleEndian, TypeMethodCall)
	if _, err := m.Encode(1); err == nil {
		t.Fatal("Encode of method_call without path/member: want error, got nil")
	}

	sig := NewMarshaller(binary.LittleEndian, TypeSignal)
	sig.SetPath("/a")
	if _, err := sig.Encode(1); err == nil {
		t.Fatal("Encode of signal without interface/member: want error, got nil")
	}
}

func TestEncodeRejectsZeroSerial(t *testing.T) {
	m := NewMarshaller(binary.LittleEndian, TypeMethodCall)
	m.SetPath("/a")
	m.SetMember("M")
	if _, err := m.Encode(0); err == nil {
		t.Fatal("Encode with serial 0: want error, got nil")
	}
}

func TestParseMessageRejectsShortBuffer(t *testing.T) {
	if _, err := parseMessage([]byte{1, 2, 3}); err == nil {
		t.Fatal("parseMessage of short buffer: want error, got nil")
	}
}
