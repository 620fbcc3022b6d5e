package adbus

import (
	"encoding/binary"
	"fmt"
	"math"
)

// containerKind tags an entry on Buffer's open-container stack.
type containerKind int

const (
	containerArray containerKind = iota
	containerStruct
	containerVariant
	containerDictEntry
)

// openContainer tracks bookkeeping for one nested container being built.
type openContainer struct {
	kind        containerKind
	lengthField int // byte offset of the array's 4-byte length placeholder (containerArray only)
	dataStart   int // offset where the array's element data begins (containerArray only)
	sigStart    int // offset into buf.sig where this container's signature began
}

// Buffer is an append-only byte vector that tracks a running D-Bus
// signature describing the values written to it, per spec.md §4.A.
// It is the building block used by both Marshaller (message bodies) and
// the raw receive path (Connection.parse).
type Buffer struct {
	order binary.ByteOrder
	data  []byte
	sig   []byte
	stack []openContainer

	recvStart int // offset where the most recent RecvSlot region begins
}

// NewBuffer creates an empty Buffer using the given byte order (little or
// big endian, chosen by the connection's negotiated endianness).
func NewBuffer(order binary.ByteOrder) *Buffer {
	return &Buffer{order: order}
}

// Bytes returns the accumulated byte slice. The slice is owned by the
// Buffer; callers must copy it before further appends if they need a
// stable view.
func (b *Buffer) Bytes() []byte { return b.data }

// Signature returns the running signature of everything appended so far.
// It is only well-formed once every opened container has been closed.
func (b *Buffer) Signature() string { return string(b.sig) }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.data) }

// Reset discards all content, ready for reuse.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.sig = b.sig[:0]
	b.stack = b.stack[:0]
}

// SetSignatureExplicit overrides the running signature without affecting
// the byte content. Used when a Marshaller pre-declares a body signature
// (e.g. a Properties.Set call whose variant signature is fixed up front).
func (b *Buffer) SetSignatureExplicit(sig string) {
	b.sig = []byte(sig)
}

func (b *Buffer) align(n int) {
	pad := padding(len(b.data), n)
	for i := 0; i < pad; i++ {
		b.data = append(b.data, 0)
	}
}

func (b *Buffer) appendSig(t Type) {
	if b.tracksSig() {
		b.sig = append(b.sig, byte(t))
	}
}

// tracksSig reports whether a value appended right now still contributes
// to the running top-level signature. An array's element signature and a
// variant's payload signature are each declared in full up front (as
// elemSig/sig), so anything nested underneath one must not also leak its
// type codes into the outer signature; a struct or dict-entry has no such
// upfront declaration and instead builds its signature incrementally from
// its members, so nesting inside only those still tracks.
func (b *Buffer) tracksSig() bool {
	for _, c := range b.stack {
		if c.kind == containerArray || c.kind == containerVariant {
			return false
		}
	}
	return true
}

// RecvSlot returns a writable region of at least n bytes at the end of the
// buffer, growing it as needed. The region is provisionally part of the
// buffer; CommitRecv must be called afterwards with the number of bytes
// actually filled in (which may be less than n for a short socket read).
func (b *Buffer) RecvSlot(n int) []byte {
	b.recvStart = len(b.data)
	b.data = append(b.data, make([]byte, n)...)
	return b.data[b.recvStart : b.recvStart+n]
}

// CommitRecv truncates the most recent RecvSlot region to the number of
// bytes actually filled in, discarding the unfilled tail.
func (b *Buffer) CommitRecv(actual int) {
	if actual < 0 {
		actual = 0
	}
	b.data = b.data[:b.recvStart+actual]
}

// --- primitive appenders -----------------------------------------------

// AppendByte appends a single unaligned byte.
func (b *Buffer) AppendByte(v byte) {
	b.data = append(b.data, v)
	b.appendSig(TypeByte)
}

// AppendBool appends a 4-byte boolean (0 or 1).
func (b *Buffer) AppendBool(v bool) {
	b.align(4)
	var n uint32
	if v {
		n = 1
	}
	b.data = b.order.AppendUint32(b.data, n)
	b.appendSig(TypeBool)
}

// AppendInt16 appends a 2-byte signed integer.
func (b *Buffer) AppendInt16(v int16) {
	b.align(2)
	b.data = b.order.AppendUint16(b.data, uint16(v))
	b.appendSig(TypeInt16)
}

// AppendUint16 appends a 2-byte unsigned integer.
func (b *Buffer) AppendUint16(v uint16) {
	b.align(2)
	b.data = b.order.AppendUint16(b.data, v)
	b.appendSig(TypeUint16)
}

// AppendInt32 appends a 4-byte signed integer.
func (b *Buffer) AppendInt32(v int32) {
	b.align(4)
	b.data = b.order.AppendUint32(b.data, uint32(v))
	b.appendSig(TypeInt32)
}

// AppendUint32 appends a 4-byte unsigned integer.
func (b *Buffer) AppendUint32(v uint32) {
	b.align(4)
	b.data = b.order.AppendUint32(b.data, v)
	b.appendSig(TypeUint32)
}

// AppendInt64 appends an 8-byte signed integer.
func (b *Buffer) AppendInt64(v int64) {
	b.align(8)
	b.data = b.order.AppendUint64(b.data, uint64(v))
	b.appendSig(TypeInt64)
}

// AppendUint64 appends an 8-byte unsigned integer.
func (b *Buffer) AppendUint64(v uint64) {
	b.align(8)
	b.data = b.order.AppendUint64(b.data, v)
	b.appendSig(TypeUint64)
}

// AppendDouble appends an 8-byte IEEE-754 double.
func (b *Buffer) AppendDouble(v float64) {
	b.align(8)
	b.data = b.order.AppendUint64(b.data, math.Float64bits(v))
	b.appendSig(TypeDouble)
}

// AppendString appends a length-prefixed, NUL-terminated UTF-8 string.
func (b *Buffer) AppendString(v string) {
	b.align(4)
	b.data = b.order.AppendUint32(b.data, uint32(len(v)))
	b.data = append(b.data, v...)
	b.data = append(b.data, 0)
	b.appendSig(TypeString)
}

// AppendObjectPath appends a length-prefixed, NUL-terminated object path.
// The caller is responsible for validating the path grammar beforehand
// (ValidateObjectPath); this keeps the hot append path allocation-light.
func (b *Buffer) AppendObjectPath(v string) {
	b.align(4)
	b.data = b.order.AppendUint32(b.data, uint32(len(v)))
	b.data = append(b.data, v...)
	b.data = append(b.data, 0)
	b.appendSig(TypeObjectPath)
}

// AppendSignature appends a 1-byte-length-prefixed, NUL-terminated
// signature string.
func (b *Buffer) AppendSignature(v string) {
	b.data = append(b.data, byte(len(v)))
	b.data = append(b.data, v...)
	b.data = append(b.data, 0)
	b.appendSig(TypeSignature)
}

// --- containers ----------------------------------------------------------

// BeginArray opens an array container whose elements have signature
// elemSig (a single complete type, e.g. "y", "(si)", "a{sv}"). It writes a
// placeholder length field and the alignment padding required before the
// first element, per the empty-array boundary case in spec.md §8.
func (b *Buffer) BeginArray(elemSig string) error {
	// elemSig may itself be a dict-entry signature ("{sv}"), which is
	// only a legal standalone type directly inside an array; validate
	// the full array type rather than elemSig in isolation.
	if err := ValidateSignature("a" + elemSig); err != nil {
		return fmt.Errorf("adbus: BeginArray: %w", err)
	}
	b.align(4)
	lenField := len(b.data)
	b.data = b.order.AppendUint32(b.data, 0) // placeholder, patched in EndArray
	if b.tracksSig() {
		b.sig = append(b.sig, byte(TypeArray))
		b.sig = append(b.sig, elemSig...)
	}
	elemAlign := alignmentOf(Type(elemSig[0]))
	b.align(elemAlign)
	b.stack = append(b.stack, openContainer{
		kind:        containerArray,
		lengthField: lenField,
		dataStart:   len(b.data),
	})
	return nil
}

// EndArray closes the innermost array container, patching its length
// field with the number of bytes written since BeginArray's alignment
// point (not counting the length field itself).
func (b *Buffer) EndArray() error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1].kind != containerArray {
		return fmt.Errorf("adbus: EndArray: not the innermost open container")
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	n := len(b.data) - top.dataStart
	if n > 64*1024*1024 {
		return fmt.Errorf("adbus: array body %d bytes exceeds 64 MiB limit", n)
	}
	b.order.PutUint32(b.data[top.lengthField:top.lengthField+4], uint32(n))
	return nil
}

// BeginStruct opens an 8-byte-aligned struct container.
func (b *Buffer) BeginStruct() {
	b.align(8)
	if b.tracksSig() {
		b.sig = append(b.sig, byte(typeStructOpen))
	}
	b.stack = append(b.stack, openContainer{kind: containerStruct})
}

// EndStruct closes the innermost struct container.
func (b *Buffer) EndStruct() error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1].kind != containerStruct {
		return fmt.Errorf("adbus: EndStruct: not the innermost open container")
	}
	b.stack = b.stack[:len(b.stack)-1]
	if b.tracksSig() {
		b.sig = append(b.sig, byte(typeStructClose))
	}
	return nil
}

// BeginDictEntry opens an 8-byte-aligned dict-entry container. Dict
// entries are only legal directly inside an array of dict entries.
func (b *Buffer) BeginDictEntry() {
	b.align(8)
	if b.tracksSig() {
		b.sig = append(b.sig, byte(typeDictOpen))
	}
	b.stack = append(b.stack, openContainer{kind: containerDictEntry})
}

// EndDictEntry closes the innermost dict-entry container.
func (b *Buffer) EndDictEntry() error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1].kind != containerDictEntry {
		return fmt.Errorf("adbus: EndDictEntry: not the innermost open container")
	}
	b.stack = b.stack[:len(b.stack)-1]
	if b.tracksSig() {
		b.sig = append(b.sig, byte(typeDictClose))
	}
	return nil
}

// BeginVariant opens a variant container: it writes the embedded
// signature (1-byte length prefix form) and recurses, so the values
// subsequently appended are the variant's payload.
func (b *Buffer) BeginVariant(sig string) error {
	if err := ValidateSignature(sig); err != nil {
		return fmt.Errorf("adbus: BeginVariant: %w", err)
	}
	if b.tracksSig() {
		b.sig = append(b.sig, byte(TypeVariant))
	}
	b.data = append(b.data, byte(len(sig)))
	b.data = append(b.data, sig...)
	b.data = append(b.data, 0)
	b.stack = append(b.stack, openContainer{kind: containerVariant})
	return nil
}

// EndVariant closes the innermost variant container.
func (b *Buffer) EndVariant() error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1].kind != containerVariant {
		return fmt.Errorf("adbus: EndVariant: not the innermost open container")
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}
