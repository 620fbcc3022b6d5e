package adbus

import (
	"encoding/binary"
	"testing"
)

func TestIteratorDoneOnEmptySignature(t *testing.T) {
	it := NewIterator(binary.LittleEndian, nil, "", 0)
	if !it.Done() {
		t.Fatal("Done() on empty signature: want true")
	}
}

func TestIteratorReadWrongType(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendString("hi")

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	if _, err := it.ReadInt32(); err == nil {
		t.Fatal("ReadInt32 against a string-typed iterator: want error, got nil")
	}
}

func TestIteratorReadTruncatedData(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendUint32(7)
	full := b.Bytes()

	it := NewIterator(binary.LittleEndian, full[:2], b.Signature(), 0)
	if _, err := it.ReadUint32(); err == nil {
		t.Fatal("ReadUint32 against truncated data: want error, got nil")
	}
}

func TestIteratorReadBoolRejectsInvalidWireValue(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 2)
	it := NewIterator(binary.LittleEndian, buf, "b", 0)
	if _, err := it.ReadBool(); err == nil {
		t.Fatal("ReadBool with wire value 2: want error, got nil")
	}
}

func TestIteratorReadExhausted(t *testing.T) {
	it := NewIterator(binary.LittleEndian, nil, "", 0)
	if _, err := it.ReadByte(); err == nil {
		t.Fatal("ReadByte on exhausted iterator: want error, got nil")
	}
}

func TestIteratorSignatureReflectsConsumption(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendByte(1)
	b.AppendInt32(2)

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	if it.Signature() != "yi" {
		t.Fatalf("Signature() = %q, want yi", it.Signature())
	}
	if _, err := it.ReadByte(); err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if it.Signature() != "i" {
		t.Fatalf("Signature() after consuming byte = %q, want i", it.Signature())
	}
}

func TestIteratorValueReturnsRawSlices(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendString("abc")
	b.AppendInt32(5)

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	_, sig1, err := it.Value()
	if err != nil {
		t.Fatalf("Value() 1: %v", err)
	}
	if sig1 != "s" {
		t.Fatalf("Value() sig = %q, want s", sig1)
	}
	_, sig2, err := it.Value()
	if err != nil {
		t.Fatalf("Value() 2: %v", err)
	}
	if sig2 != "i" {
		t.Fatalf("Value() sig = %q, want i", sig2)
	}
	if !it.Done() {
		t.Fatal("iterator not Done() after consuming all values via Value()")
	}
}

func TestIteratorBeginArrayWrongType(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendString("x")
	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	if _, err := it.BeginArray(); err == nil {
		t.Fatal("BeginArray on a string-typed iterator: want error, got nil")
	}
}

func TestIteratorBeginStructWrongType(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	b.AppendInt32(1)
	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	if _, err := it.BeginStruct(); err == nil {
		t.Fatal("BeginStruct on an int32-typed iterator: want error, got nil")
	}
}
