package adbus

import (
	"fmt"
	"strings"
)

// FormatBody renders a message body as a human-readable, space-separated
// list of its top-level values, the same kind of one-line rendering
// busctl-style tools print for calls and signals. Unsupported nested
// shapes fall back to their raw signature rather than erroring, since
// this is a display helper, not a decoder contract.
func FormatBody(it *Iterator) string {
	var parts []string
	for !it.Done() {
		raw, sig, err := it.Value()
		if err != nil {
			parts = append(parts, fmt.Sprintf("<error: %v>", err))
			break
		}
		sub := NewIterator(it.order, raw, sig, 0)
		parts = append(parts, formatValue(sub, sig))
	}
	return strings.Join(parts, " ")
}

func formatValue(it *Iterator, sig string) string {
	if sig == "" {
		return ""
	}
	switch Type(sig[0]) {
	case TypeByte:
		v, err := it.ReadByte()
		return formatScalar(v, err)
	case TypeBool:
		v, err := it.ReadBool()
		return formatScalar(v, err)
	case TypeInt16:
		v, err := it.ReadInt16()
		return formatScalar(v, err)
	case TypeUint16:
		v, err := it.ReadUint16()
		return formatScalar(v, err)
	case TypeInt32:
		v, err := it.ReadInt32()
		return formatScalar(v, err)
	case TypeUint32:
		v, err := it.ReadUint32()
		return formatScalar(v, err)
	case TypeInt64:
		v, err := it.ReadInt64()
		return formatScalar(v, err)
	case TypeUint64:
		v, err := it.ReadUint64()
		return formatScalar(v, err)
	case TypeDouble:
		v, err := it.ReadDouble()
		return formatScalar(v, err)
	case TypeString:
		v, err := it.ReadString()
		return formatScalar(fmt.Sprintf("%q", v), err)
	case TypeObjectPath:
		v, err := it.ReadObjectPath()
		return formatScalar(v, err)
	case TypeSignature:
		v, err := it.ReadSignature()
		return formatScalar(v, err)
	case TypeVariant:
		vi, err := it.BeginVariant()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		return formatValue(vi.Value, vi.Signature)
	case TypeArray:
		return formatArray(it, sig)
	case typeStructOpen:
		return formatStruct(it, sig)
	case typeDictOpen:
		return formatDictEntry(it, sig)
	default:
		return fmt.Sprintf("<%s>", sig)
	}
}

func formatScalar[T any](v T, err error) string {
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return fmt.Sprint(v)
}

func formatArray(it *Iterator, sig string) string {
	arr, err := it.BeginArray()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	var items []string
	for arr.InArray() {
		elem := arr.Next()
		items = append(items, formatValue(elem, elem.Signature()))
		arr.Advance(elem)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func formatStruct(it *Iterator, sig string) string {
	s, err := it.BeginStruct()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	var fields []string
	for !s.Done() {
		raw, fsig, err := s.Value()
		if err != nil {
			fields = append(fields, fmt.Sprintf("<error: %v>", err))
			break
		}
		sub := NewIterator(s.order, raw, fsig, 0)
		fields = append(fields, formatValue(sub, fsig))
	}
	it.AdvancePastStruct(s)
	return "(" + strings.Join(fields, ", ") + ")"
}

func formatDictEntry(it *Iterator, sig string) string {
	e, err := it.BeginDictEntry()
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	var fields []string
	for !e.Done() {
		raw, fsig, err := e.Value()
		if err != nil {
			fields = append(fields, fmt.Sprintf("<error: %v>", err))
			break
		}
		sub := NewIterator(e.order, raw, fsig, 0)
		fields = append(fields, formatValue(sub, fsig))
	}
	it.AdvancePastDictEntry(e)
	return "{" + strings.Join(fields, ", ") + "}"
}
