package adbus

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Iterator is a reader over an encoded payload plus a signature cursor,
// per spec.md §4.B. It reads the underlying data in place and is only
// valid for the lifetime of the dispatch call that produced it; the
// strings it returns are copies of the payload bytes.
type Iterator struct {
	order binary.ByteOrder
	data  []byte
	off   int
	sig   string
	sigOff int

	// base is the offset, within the enclosing message body, at which
	// data[0] sits. Alignment is computed relative to this, not to the
	// start of data, so that sub-iterators (variants, arrays) align
	// correctly with respect to the whole message.
	base int
}

// NewIterator creates an Iterator over data, describing its top-level
// values with sig, where base is data's offset from the start of the
// message body (0 for a fresh top-level iterator).
func NewIterator(order binary.ByteOrder, data []byte, sig string, base int) *Iterator {
	return &Iterator{order: order, data: data, sig: sig, base: base}
}

// Signature returns the remaining, not-yet-consumed portion of the
// iterator's signature.
func (it *Iterator) Signature() string { return it.sig[it.sigOff:] }

// Done reports whether every value in the iterator's signature has been
// consumed.
func (it *Iterator) Done() bool { return it.sigOff >= len(it.sig) }

func (it *Iterator) nextType() (Type, error) {
	if it.Done() {
		return 0, fmt.Errorf("adbus: iterator exhausted")
	}
	return Type(it.sig[it.sigOff]), nil
}

func (it *Iterator) absOffset() int { return it.base + it.off }

func (it *Iterator) align(n int) error {
	pad := padding(it.absOffset(), n)
	if it.off+pad > len(it.data) {
		return fmt.Errorf("adbus: truncated message: need %d padding bytes", pad)
	}
	for i := 0; i < pad; i++ {
		if it.data[it.off+i] != 0 {
			return fmt.Errorf("adbus: non-zero alignment padding at offset %d", it.absOffset()+i)
		}
	}
	it.off += pad
	return nil
}

func (it *Iterator) take(n int) ([]byte, error) {
	if it.off+n > len(it.data) {
		return nil, fmt.Errorf("adbus: truncated message: need %d bytes, have %d", n, len(it.data)-it.off)
	}
	b := it.data[it.off : it.off+n]
	it.off += n
	return b, nil
}

func (it *Iterator) expect(want Type) error {
	got, err := it.nextType()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("adbus: expected type %q, signature has %q", byte(want), byte(got))
	}
	return nil
}

func (it *Iterator) consumeType() { it.sigOff++ }

// ReadByte reads a single unaligned byte.
func (it *Iterator) ReadByte() (byte, error) {
	if err := it.expect(TypeByte); err != nil {
		return 0, err
	}
	b, err := it.take(1)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return b[0], nil
}

// ReadBool reads a 4-byte boolean; any value other than 0 or 1 is a
// protocol error.
func (it *Iterator) ReadBool() (bool, error) {
	if err := it.expect(TypeBool); err != nil {
		return false, err
	}
	if err := it.align(4); err != nil {
		return false, err
	}
	b, err := it.take(4)
	if err != nil {
		return false, err
	}
	v := it.order.Uint32(b)
	if v > 1 {
		return false, fmt.Errorf("adbus: invalid boolean wire value %d", v)
	}
	it.consumeType()
	return v == 1, nil
}

// ReadInt16 reads a 2-byte signed integer.
func (it *Iterator) ReadInt16() (int16, error) {
	if err := it.expect(TypeInt16); err != nil {
		return 0, err
	}
	if err := it.align(2); err != nil {
		return 0, err
	}
	b, err := it.take(2)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return int16(it.order.Uint16(b)), nil
}

// ReadUint16 reads a 2-byte unsigned integer.
func (it *Iterator) ReadUint16() (uint16, error) {
	if err := it.expect(TypeUint16); err != nil {
		return 0, err
	}
	if err := it.align(2); err != nil {
		return 0, err
	}
	b, err := it.take(2)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return it.order.Uint16(b), nil
}

// ReadInt32 reads a 4-byte signed integer.
func (it *Iterator) ReadInt32() (int32, error) {
	if err := it.expect(TypeInt32); err != nil {
		return 0, err
	}
	if err := it.align(4); err != nil {
		return 0, err
	}
	b, err := it.take(4)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return int32(it.order.Uint32(b)), nil
}

// ReadUint32 reads a 4-byte unsigned integer.
func (it *Iterator) ReadUint32() (uint32, error) {
	if err := it.expect(TypeUint32); err != nil {
		return 0, err
	}
	if err := it.align(4); err != nil {
		return 0, err
	}
	b, err := it.take(4)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return it.order.Uint32(b), nil
}

// ReadInt64 reads an 8-byte signed integer.
func (it *Iterator) ReadInt64() (int64, error) {
	if err := it.expect(TypeInt64); err != nil {
		return 0, err
	}
	if err := it.align(8); err != nil {
		return 0, err
	}
	b, err := it.take(8)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return int64(it.order.Uint64(b)), nil
}

// ReadUint64 reads an 8-byte unsigned integer.
func (it *Iterator) ReadUint64() (uint64, error) {
	if err := it.expect(TypeUint64); err != nil {
		return 0, err
	}
	if err := it.align(8); err != nil {
		return 0, err
	}
	b, err := it.take(8)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return it.order.Uint64(b), nil
}

// ReadDouble reads an 8-byte IEEE-754 double.
func (it *Iterator) ReadDouble() (float64, error) {
	if err := it.expect(TypeDouble); err != nil {
		return 0, err
	}
	if err := it.align(8); err != nil {
		return 0, err
	}
	b, err := it.take(8)
	if err != nil {
		return 0, err
	}
	it.consumeType()
	return math.Float64frombits(it.order.Uint64(b)), nil
}

// readLengthPrefixedString reads the common [len(u32)][bytes][NUL] shape
// shared by strings and object paths.
func (it *Iterator) readLengthPrefixedString() (string, error) {
	if err := it.align(4); err != nil {
		return "", err
	}
	lb, err := it.take(4)
	if err != nil {
		return "", err
	}
	n := it.order.Uint32(lb)
	body, err := it.take(int(n))
	if err != nil {
		return "", err
	}
	nul, err := it.take(1)
	if err != nil {
		return "", err
	}
	if nul[0] != 0 {
		return "", fmt.Errorf("adbus: string payload missing terminating NUL")
	}
	return string(body), nil
}

// ReadString reads a length-prefixed, NUL-terminated UTF-8 string.
func (it *Iterator) ReadString() (string, error) {
	if err := it.expect(TypeString); err != nil {
		return "", err
	}
	s, err := it.readLengthPrefixedString()
	if err != nil {
		return "", err
	}
	it.consumeType()
	return s, nil
}

// ReadObjectPath reads a length-prefixed, NUL-terminated object path and
// validates its grammar.
func (it *Iterator) ReadObjectPath() (string, error) {
	if err := it.expect(TypeObjectPath); err != nil {
		return "", err
	}
	s, err := it.readLengthPrefixedString()
	if err != nil {
		return "", err
	}
	if err := ValidateObjectPath(s); err != nil {
		return "", err
	}
	it.consumeType()
	return s, nil
}

// ReadSignature reads a 1-byte-length-prefixed, NUL-terminated signature
// string.
func (it *Iterator) ReadSignature() (string, error) {
	if err := it.expect(TypeSignature); err != nil {
		return "", err
	}
	lb, err := it.take(1)
	if err != nil {
		return "", err
	}
	n := int(lb[0])
	body, err := it.take(n)
	if err != nil {
		return "", err
	}
	nul, err := it.take(1)
	if err != nil {
		return "", err
	}
	if nul[0] != 0 {
		return "", fmt.Errorf("adbus: signature payload missing terminating NUL")
	}
	it.consumeType()
	return string(body), nil
}

// ArrayIterator is returned by BeginArray and yields each element in turn
// via Next.
type ArrayIterator struct {
	parent   *Iterator
	elemSig  string
	end      int // absolute offset (into parent.data) one past the array body
}

// InArray reports whether at least one more element remains in the array.
func (a *ArrayIterator) InArray() bool {
	return a.parent.off < a.end
}

// Next returns an Iterator scoped to exactly the array's element type,
// starting at the parent's current offset. Reading through it does not
// move the parent; callers pass the fully consumed element to Advance
// before calling InArray or Next again.
func (a *ArrayIterator) Next() *Iterator {
	return &Iterator{
		order: a.parent.order,
		data:  a.parent.data,
		off:   a.parent.off,
		sig:   a.elemSig,
		base:  a.parent.base,
	}
}

// Advance commits the bytes consumed by an element Iterator obtained from
// Next back into the parent iterator's cursor. Callers must call this
// after fully reading one element before calling InArray/Next again.
func (a *ArrayIterator) Advance(elem *Iterator) {
	a.parent.off = elem.off
}

// BeginArray reads an array's length prefix and alignment padding and
// returns an ArrayIterator over its elements. elemSig is consumed from the
// iterator's own signature.
func (it *Iterator) BeginArray() (*ArrayIterator, error) {
	if err := it.expect(TypeArray); err != nil {
		return nil, err
	}
	elemSig, elemSigLen, err := firstCompleteType(it.sig[it.sigOff+1:])
	if err != nil {
		return nil, err
	}
	if err := it.align(4); err != nil {
		return nil, err
	}
	lb, err := it.take(4)
	if err != nil {
		return nil, err
	}
	n := it.order.Uint32(lb)
	if n > 64*1024*1024 {
		return nil, fmt.Errorf("adbus: array body %d bytes exceeds 64 MiB limit", n)
	}
	if err := it.align(alignmentOf(Type(elemSig[0]))); err != nil {
		return nil, err
	}
	end := it.off + int(n)
	if end > len(it.data) {
		return nil, fmt.Errorf("adbus: truncated array body")
	}
	it.sigOff += 1 + elemSigLen
	return &ArrayIterator{parent: it, elemSig: elemSig, end: end}, nil
}

// VariantIterator exposes a variant's embedded signature and a
// sub-iterator over its single value.
type VariantIterator struct {
	Signature string
	Value     *Iterator
}

// BeginVariant reads the embedded signature of a variant value and
// returns a sub-iterator over the payload.
func (it *Iterator) BeginVariant() (*VariantIterator, error) {
	if err := it.expect(TypeVariant); err != nil {
		return nil, err
	}
	sig, err := it.readSignatureRaw()
	if err != nil {
		return nil, err
	}
	if err := ValidateSignature(sig); err != nil {
		return nil, fmt.Errorf("adbus: variant has invalid embedded signature: %w", err)
	}
	it.consumeType()
	sub := &Iterator{order: it.order, data: it.data, off: it.off, sig: sig, base: it.base}
	return &VariantIterator{Signature: sig, Value: sub}, nil
}

// AdvancePastVariant commits the bytes consumed reading a variant's value
// back into the parent iterator.
func (it *Iterator) AdvancePastVariant(v *VariantIterator) {
	it.off = v.Value.off
}

func (it *Iterator) readSignatureRaw() (string, error) {
	lb, err := it.take(1)
	if err != nil {
		return "", err
	}
	n := int(lb[0])
	body, err := it.take(n)
	if err != nil {
		return "", err
	}
	nul, err := it.take(1)
	if err != nil {
		return "", err
	}
	if nul[0] != 0 {
		return "", fmt.Errorf("adbus: signature payload missing terminating NUL")
	}
	return string(body), nil
}

// BeginStruct consumes the struct's opening alignment and '(' signature
// character, returning a sub-iterator whose signature is the struct's
// field list. The sub-iterator starts at a copy of the parent's offset;
// AdvancePastStruct commits what it consumed back to the parent.
func (it *Iterator) BeginStruct() (*Iterator, error) {
	if err := it.expect(typeStructOpen); err != nil {
		return nil, err
	}
	if err := it.align(8); err != nil {
		return nil, err
	}
	fieldsSig, n, err := structFields(it.sig[it.sigOff:])
	if err != nil {
		return nil, err
	}
	it.sigOff += n
	return &Iterator{order: it.order, data: it.data, off: it.off, sig: fieldsSig, base: it.base}, nil
}

// AdvancePastStruct commits the bytes and signature consumed by a struct
// sub-iterator back into the parent.
func (it *Iterator) AdvancePastStruct(s *Iterator) { it.off = s.off }

// BeginDictEntry consumes a dict entry's opening alignment and '{'
// signature character, returning a sub-iterator over exactly its key and
// value types. Dict entries only ever appear as array elements, so this
// mirrors BeginStruct rather than having its own ArrayIterator-style type.
func (it *Iterator) BeginDictEntry() (*Iterator, error) {
	if err := it.expect(typeDictOpen); err != nil {
		return nil, err
	}
	if err := it.align(8); err != nil {
		return nil, err
	}
	fieldsSig, n, err := dictEntryFields(it.sig[it.sigOff:])
	if err != nil {
		return nil, err
	}
	it.sigOff += n
	return &Iterator{order: it.order, data: it.data, off: it.off, sig: fieldsSig, base: it.base}, nil
}

// AdvancePastDictEntry commits the bytes and signature consumed by a
// dict-entry sub-iterator back into the parent.
func (it *Iterator) AdvancePastDictEntry(s *Iterator) { it.off = s.off }

// Value advances the iterator past exactly one complete top-level value
// without interpreting it, returning the raw bytes and the signature of
// the value skipped. Used by callers (e.g. a generic Variant capture) that
// want the blob plus its signature without fully parsing it.
func (it *Iterator) Value() ([]byte, string, error) {
	sig, n, err := firstCompleteType(it.sig[it.sigOff:])
	if err != nil {
		return nil, "", err
	}
	start := it.off
	probe := &Iterator{order: it.order, data: it.data, off: it.off, sig: sig, base: it.base}
	if err := skipValue(probe); err != nil {
		return nil, "", err
	}
	it.off = probe.off
	it.sigOff += n
	return it.data[start:it.off], sig, nil
}

// skipValue advances probe past one complete value of its single-type
// signature, used internally by Value.
func skipValue(probe *Iterator) error {
	t := Type(probe.sig[0])
	switch t {
	case TypeByte:
		_, err := probe.ReadByte()
		return err
	case TypeBool:
		_, err := probe.ReadBool()
		return err
	case TypeInt16:
		_, err := probe.ReadInt16()
		return err
	case TypeUint16:
		_, err := probe.ReadUint16()
		return err
	case TypeInt32:
		_, err := probe.ReadInt32()
		return err
	case TypeUint32:
		_, err := probe.ReadUint32()
		return err
	case TypeInt64:
		_, err := probe.ReadInt64()
		return err
	case TypeUint64:
		_, err := probe.ReadUint64()
		return err
	case TypeDouble:
		_, err := probe.ReadDouble()
		return err
	case TypeString:
		_, err := probe.ReadString()
		return err
	case TypeObjectPath:
		_, err := probe.ReadObjectPath()
		return err
	case TypeSignature:
		_, err := probe.ReadSignature()
		return err
	case TypeVariant:
		v, err := probe.BeginVariant()
		if err != nil {
			return err
		}
		probe.AdvancePastVariant(v)
		return nil
	case TypeArray:
		a, err := probe.BeginArray()
		if err != nil {
			return err
		}
		for a.InArray() {
			elem := a.Next()
			if err := skipValue(elem); err != nil {
				return err
			}
			a.Advance(elem)
		}
		return nil
	case typeStructOpen:
		s, err := probe.BeginStruct()
		if err != nil {
			return err
		}
		for !s.Done() {
			if err := skipValue(s); err != nil {
				return err
			}
		}
		probe.AdvancePastStruct(s)
		return nil
	case typeDictOpen:
		s, err := probe.BeginDictEntry()
		if err != nil {
			return err
		}
		for !s.Done() {
			if err := skipValue(s); err != nil {
				return err
			}
		}
		probe.AdvancePastDictEntry(s)
		return nil
	default:
		return fmt.Errorf("adbus: cannot skip unknown type %q", byte(t))
	}
}

// firstCompleteType returns the substring of sig that is exactly the first
// complete type (e.g. "i", "(si)", "a{sv}"), and its length.
func firstCompleteType(sig string) (string, int, error) {
	if sig == "" {
		return "", 0, fmt.Errorf("adbus: missing type in signature")
	}
	switch Type(sig[0]) {
	case TypeByte, TypeBool, TypeInt16, TypeUint16, TypeInt32, TypeUint32,
		TypeInt64, TypeUint64, TypeDouble, TypeString, TypeObjectPath,
		TypeSignature, TypeVariant:
		return sig[:1], 1, nil
	case TypeArray:
		_, n, err := firstCompleteType(sig[1:])
		if err != nil {
			return "", 0, err
		}
		return sig[:1+n], 1 + n, nil
	case typeStructOpen:
		depth := 0
		for i := 0; i < len(sig); i++ {
			switch sig[i] {
			case byte(typeStructOpen):
				depth++
			case byte(typeStructClose):
				depth--
				if depth == 0 {
					return sig[:i+1], i + 1, nil
				}
			}
		}
		return "", 0, fmt.Errorf("adbus: unterminated struct signature")
	case typeDictOpen:
		depth := 0
		for i := 0; i < len(sig); i++ {
			switch sig[i] {
			case byte(typeDictOpen):
				depth++
			case byte(typeDictClose):
				depth--
				if depth == 0 {
					return sig[:i+1], i + 1, nil
				}
			}
		}
		return "", 0, fmt.Errorf("adbus: unterminated dict-entry signature")
	default:
		return "", 0, fmt.Errorf("adbus: unknown signature type code %q", sig[0])
	}
}

// structFields returns the inner field-list signature of a '(...)' struct
// signature (sig must start right after the already-consumed '(') plus
// the number of signature bytes consumed including the closing ')'.
func structFields(sig string) (string, int, error) {
	depth := 1
	for i := 1; i < len(sig); i++ {
		switch sig[i] {
		case byte(typeStructOpen):
			depth++
		case byte(typeStructClose):
			depth--
			if depth == 0 {
				return sig[1:i], i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("adbus: unterminated struct signature")
}

// dictEntryFields returns the inner key/value signature of a '{...}'
// dict-entry signature, the same way structFields does for '(...)'.
func dictEntryFields(sig string) (string, int, error) {
	depth := 1
	for i := 1; i < len(sig); i++ {
		switch sig[i] {
		case byte(typeDictOpen):
			depth++
		case byte(typeDictClose):
			depth--
			if depth == 0 {
				return sig[1:i], i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("adbus: unterminated dict-entry signature")
}
