package adbus

import (
	"encoding/binary"
	"testing"
)

func TestBufferAppendAndSignature(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendByte(7)
	b.AppendString("hello")
	b.AppendUint32(42)

	if got, want := b.Signature(), "ysu"; got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	v, err := it.ReadByte()
	if err != nil || v != 7 {
		t.Fatalf("ReadByte() = %v, %v, want 7, nil", v, err)
	}
	s, err := it.ReadString()
	if err != nil || s != "hello" {
		t.Fatalf("ReadString() = %q, %v, want hello, nil", s, err)
	}
	u, err := it.ReadUint32()
	if err != nil || u != 42 {
		t.Fatalf("ReadUint32() = %v, %v, want 42, nil", u, err)
	}
	if !it.Done() {
		t.Fatalf("iterator not Done() after consuming full signature")
	}
}

func TestBufferArrayRoundTrip(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	if err := b.BeginArray("s"); err != nil {
		t.Fatalf("BeginArray: %v", err)
	}
	b.AppendString("a")
	b.AppendString("bb")
	b.AppendString("ccc")
	if err := b.EndArray(); err != nil {
		t.Fatalf("EndArray: %v", err)
	}

	if got, want := b.Signature(), "as"; got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	arr, err := it.BeginArray()
	if err != nil {
		t.Fatalf("BeginArray: %v", err)
	}
	var got []string
	for arr.InArray() {
		elem := arr.Next()
		s, err := elem.ReadString()
		if err != nil {
			t.Fatalf("ReadString: %v", err)
		}
		got = append(got, s)
		arr.Advance(elem)
	}
	want := []string{"a", "bb", "ccc"}
	if len(got) != len(want) {
		t.Fatalf("got %v values, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBufferStructRoundTrip(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.BeginStruct()
	b.AppendString("key")
	b.AppendInt32(-1)
	if err := b.EndStruct(); err != nil {
		t.Fatalf("EndStruct: %v", err)
	}

	if got, want := b.Signature(), "(si)"; got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	s, err := it.BeginStruct()
	if err != nil {
		t.Fatalf("BeginStruct: %v", err)
	}
	key, err := s.ReadString()
	if err != nil || key != "key" {
		t.Fatalf("ReadString() = %q, %v, want key, nil", key, err)
	}
	n, err := s.ReadInt32()
	if err != nil || n != -1 {
		t.Fatalf("ReadInt32() = %v, %v, want -1, nil", n, err)
	}
	it.AdvancePastStruct(s)
	if !it.Done() {
		t.Fatalf("iterator not Done() after struct")
	}
}

func TestBufferEndArrayWithoutBegin(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	if err := b.EndArray(); err == nil {
		t.Fatalf("EndArray with nothing open: want error, got nil")
	}
}

func TestBufferVariantRoundTrip(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	if err := b.BeginVariant("s"); err != nil {
		t.Fatalf("BeginVariant: %v", err)
	}
	b.AppendString("payload")
	if err := b.EndVariant(); err != nil {
		t.Fatalf("EndVariant: %v", err)
	}

	if got, want := b.Signature(), "v"; got != want {
		t.Fatalf("Signature() = %q, want %q", got, want)
	}

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	vi, err := it.BeginVariant()
	if err != nil {
		t.Fatalf("BeginVariant: %v", err)
	}
	if vi.Signature != "s" {
		t.Fatalf("variant signature = %q, want s", vi.Signature)
	}
	s, err := vi.Value.ReadString()
	if err != nil || s != "payload" {
		t.Fatalf("ReadString() = %q, %v, want payload, nil", s, err)
	}
}
