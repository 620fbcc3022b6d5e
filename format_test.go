package adbus

import (
	"encoding/binary"
	"testing"
)

func formatBuffer(t *testing.T, b *Buffer) string {
	t.Helper()
	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	return FormatBody(it)
}

func TestFormatBodyScalars(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendString("hi")
	b.AppendInt32(-5)
	b.AppendBool(true)

	got := formatBuffer(t, b)
	want := `"hi" -5 true`
	if got != want {
		t.Errorf("FormatBody() = %q, want %q", got, want)
	}
}

func TestFormatBodyArray(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	if err := b.BeginArray("s"); err != nil {
		t.Fatalf("BeginArray: %v", err)
	}
	b.AppendString("a")
	b.AppendString("b")
	if err := b.EndArray(); err != nil {
		t.Fatalf("EndArray: %v", err)
	}

	got := formatBuffer(t, b)
	want := `["a", "b"]`
	if got != want {
		t.Errorf("FormatBody() = %q, want %q", got, want)
	}
}

func TestFormatBodyStruct(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.BeginStruct()
	b.AppendString("key")
	b.AppendInt32(3)
	if err := b.EndStruct(); err != nil {
		t.Fatalf("EndStruct: %v", err)
	}

	got := formatBuffer(t, b)
	want := `("key", 3)`
	if got != want {
		t.Errorf("FormatBody() = %q, want %q", got, want)
	}
}

func TestFormatBodyVariant(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	if err := b.BeginVariant("u"); err != nil {
		t.Fatalf("BeginVariant: %v", err)
	}
	b.AppendUint32(99)
	if err := b.EndVariant(); err != nil {
		t.Fatalf("EndVariant: %v", err)
	}

	got := formatBuffer(t, b)
	want := "99"
	if got != want {
		t.Errorf("FormatBody() = %q, want %q", got, want)
	}
}

func TestFormatBodyEmpty(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	got := formatBuffer(t, b)
	if got != "" {
		t.Errorf("FormatBody() of empty body = %q, want empty string", got)
	}
}
