package adbus

import (
	"encoding/binary"
	"testing"
)

func TestNewVariantInfersSignature(t *testing.T) {
	tests := []struct {
		value   any
		wantSig string
		wantErr bool
	}{
		{byte(1), "y", false},
		{true, "b", false},
		{int16(1), "n", false},
		{uint16(1), "q", false},
		{int32(1), "i", false},
		{uint32(1), "u", false},
		{int64(1), "x", false},
		{uint64(1), "t", false},
		{float64(1), "d", false},
		{"str", "s", false},
		{42, "", true}, // plain int has no inferred signature
	}
	for _, tc := range tests {
		v, err := NewVariant(tc.value)
		if (err != nil) != tc.wantErr {
			t.Fatalf("NewVariant(%v) error = %v, wantErr %v", tc.value, err, tc.wantErr)
		}
		if err == nil && v.Signature != tc.wantSig {
			t.Errorf("NewVariant(%v).Signature = %q, want %q", tc.value, v.Signature, tc.wantSig)
		}
	}
}

func TestAppendAndReadVariantValue(t *testing.T) {
	b := NewBuffer(binary.LittleEndian)
	val := Variant{Signature: "u", Value: uint32(99)}
	if err := AppendVariantValue(b, val); err != nil {
		t.Fatalf("AppendVariantValue: %v", err)
	}

	it := NewIterator(binary.LittleEndian, b.Bytes(), b.Signature(), 0)
	vi, err := it.BeginVariant()
	if err != nil {
		t.Fatalf("BeginVariant: %v", err)
	}
	got, err := ReadVariantValue(vi)
	if err != nil {
		t.Fatalf("ReadVariantValue: %v", err)
	}
	if got.Signature != "u" || got.Value.(uint32) != 99 {
		t.Fatalf("ReadVariantValue() = %+v, want {u 99}", got)
	}
}
