package adbus

import "fmt"

// Variant is a self-describing D-Bus value: a signature paired with its Go
// representation. Property getters/setters and generic method arguments
// that accept heterogeneous content use Variant rather than forcing every
// caller to know the wire type ahead of time.
type Variant struct {
	Signature string
	Value     any
}

// NewVariant wraps v with a signature inferred from its Go type. Use an
// explicit Variant{Signature: ..., Value: v} literal for types whose wire
// signature cannot be inferred (structs, dict maps, nested variants of a
// specific flavor).
func NewVariant(v any) (Variant, error) {
	sig, err := inferSignature(v)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Signature: sig, Value: v}, nil
}

func inferSignature(v any) (string, error) {
	switch v.(type) {
	case byte:
		return "y", nil
	case bool:
		return "b", nil
	case int16:
		return "n", nil
	case uint16:
		return "q", nil
	case int32:
		return "i", nil
	case uint32:
		return "u", nil
	case int64:
		return "x", nil
	case uint64:
		return "t", nil
	case float64:
		return "d", nil
	case string:
		return "s", nil
	case Variant:
		return "v", nil
	default:
		return "", fmt.Errorf("adbus: cannot infer signature for %T, construct Variant explicitly", v)
	}
}

// AppendVariantValue opens a variant with val.Signature via
// Buffer.BeginVariant, writes val.Value with the appropriate primitive
// appender, and closes it with Buffer.EndVariant.
// Only scalar types are supported here; composite variant payloads should
// be built by calling the Buffer container methods directly inside the
// BeginVariant/EndVariant pair.
func AppendVariantValue(buf *Buffer, val Variant) error {
	if err := buf.BeginVariant(val.Signature); err != nil {
		return err
	}
	if err := appendScalar(buf, Type(val.Signature[0]), val.Value); err != nil {
		return err
	}
	return buf.EndVariant()
}

func appendScalar(buf *Buffer, t Type, v any) error {
	switch t {
	case TypeByte:
		buf.AppendByte(v.(byte))
	case TypeBool:
		buf.AppendBool(v.(bool))
	case TypeInt16:
		buf.AppendInt16(v.(int16))
	case TypeUint16:
		buf.AppendUint16(v.(uint16))
	case TypeInt32:
		buf.AppendInt32(v.(int32))
	case TypeUint32:
		buf.AppendUint32(v.(uint32))
	case TypeInt64:
		buf.AppendInt64(v.(int64))
	case TypeUint64:
		buf.AppendUint64(v.(uint64))
	case TypeDouble:
		buf.AppendDouble(v.(float64))
	case TypeString:
		buf.AppendString(v.(string))
	case TypeObjectPath:
		buf.AppendObjectPath(v.(string))
	case TypeSignature:
		buf.AppendSignature(v.(string))
	default:
		return fmt.Errorf("adbus: appendScalar: unsupported type %q for a pre-built Variant value", byte(t))
	}
	return nil
}

// ReadVariantValue reads a scalar value out of a variant sub-iterator
// whose signature is exactly one basic type character, returning it boxed
// in a Variant. Composite variant payloads should be walked directly via
// vi's Value iterator instead.
func ReadVariantValue(vi *VariantIterator) (Variant, error) {
	it := vi.Value
	switch Type(vi.Signature[0]) {
	case TypeByte:
		v, err := it.ReadByte()
		return Variant{vi.Signature, v}, err
	case TypeBool:
		v, err := it.ReadBool()
		return Variant{vi.Signature, v}, err
	case TypeInt16:
		v, err := it.ReadInt16()
		return Variant{vi.Signature, v}, err
	case TypeUint16:
		v, err := it.ReadUint16()
		return Variant{vi.Signature, v}, err
	case TypeInt32:
		v, err := it.ReadInt32()
		return Variant{vi.Signature, v}, err
	case TypeUint32:
		v, err := it.ReadUint32()
		return Variant{vi.Signature, v}, err
	case TypeInt64:
		v, err := it.ReadInt64()
		return Variant{vi.Signature, v}, err
	case TypeUint64:
		v, err := it.ReadUint64()
		return Variant{vi.Signature, v}, err
	case TypeDouble:
		v, err := it.ReadDouble()
		return Variant{vi.Signature, v}, err
	case TypeString:
		v, err := it.ReadString()
		return Variant{vi.Signature, v}, err
	case TypeObjectPath:
		v, err := it.ReadObjectPath()
		return Variant{vi.Signature, v}, err
	case TypeSignature:
		v, err := it.ReadSignature()
		return Variant{vi.Signature, v}, err
	default:
		return Variant{}, fmt.Errorf("adbus: ReadVariantValue: unsupported nested signature %q", vi.Signature)
	}
}
