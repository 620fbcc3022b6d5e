package adbus

import (
	"encoding/binary"
	"fmt"
)

// Marshaller builds a complete wire message in one buffer, per spec.md
// §4.C. Callers set header fields, append body values through the Body
// field's Buffer methods, then call Send to hand the finished bytes to a
// Connection.
type Marshaller struct {
	order  binary.ByteOrder
	endian byte

	typ         MessageType
	flags       Flags
	serial      uint32
	serialSet   bool
	destination string
	path        string
	iface       string
	member      string
	errorName   string
	replySerial uint32
	hasReply    bool
	sender      string

	Body *Buffer
}

// NewMarshaller creates a Marshaller for a message of the given type,
// using order for all multi-byte integers.
func NewMarshaller(order binary.ByteOrder, typ MessageType) *Marshaller {
	endian := byte('l')
	if order == binary.BigEndian {
		endian = 'B'
	}
	return &Marshaller{order: order, endian: endian, typ: typ, Body: NewBuffer(order)}
}

func (m *Marshaller) SetFlags(f Flags)            { m.flags = f }
func (m *Marshaller) SetSerial(s uint32)          { m.serial = s; m.serialSet = true }
func (m *Marshaller) SetDestination(d string)     { m.destination = d }
func (m *Marshaller) SetPath(p string)            { m.path = p }
func (m *Marshaller) SetInterface(i string)       { m.iface = i }
func (m *Marshaller) SetMember(mem string)        { m.member = mem }
func (m *Marshaller) SetErrorName(e string)       { m.errorName = e }
func (m *Marshaller) SetReplySerial(s uint32)     { m.replySerial = s; m.hasReply = true }
func (m *Marshaller) SetSender(s string)          { m.sender = s }

// validate checks the required-field invariants of spec.md §3 before a
// message is serialized.
func (m *Marshaller) validate() error {
	switch m.typ {
	case TypeMethodCall:
		if m.path == "" || m.member == "" {
			return fmt.Errorf("adbus: method_call requires path and member")
		}
	case TypeMethodReturn:
		if !m.hasReply {
			return fmt.Errorf("adbus: method_return requires reply_serial")
		}
	case TypeError:
		if !m.hasReply || m.errorName == "" {
			return fmt.Errorf("adbus: error requires reply_serial and error_name")
		}
	case TypeSignal:
		if m.path == "" || m.iface == "" || m.member == "" {
			return fmt.Errorf("adbus: signal requires path, interface and member")
		}
	default:
		return fmt.Errorf("adbus: cannot send message of type %s", m.typ)
	}
	return nil
}

// encodeHeaderFields builds the array-of-header-fields blob (a(yv)).
func (m *Marshaller) encodeHeaderFields() (*Buffer, error) {
	hb := NewBuffer(m.order)
	if err := hb.BeginArray("(yv)"); err != nil {
		return nil, err
	}
	add := func(code headerField, sig string, write func(*Buffer) error) error {
		hb.BeginStruct()
		hb.AppendByte(byte(code))
		if err := hb.BeginVariant(sig); err != nil {
			return err
		}
		if err := write(hb); err != nil {
			return err
		}
		if err := hb.EndVariant(); err != nil {
			return err
		}
		return hb.EndStruct()
	}
	if m.path != "" {
		if err := add(fieldPath, "o", func(b *Buffer) error { b.AppendObjectPath(m.path); return nil }); err != nil {
			return nil, err
		}
	}
	if m.iface != "" {
		if err := add(fieldInterface, "s", func(b *Buffer) error { b.AppendString(m.iface); return nil }); err != nil {
			return nil, err
		}
	}
	if m.member != "" {
		if err := add(fieldMember, "s", func(b *Buffer) error { b.AppendString(m.member); return nil }); err != nil {
			return nil, err
		}
	}
	if m.errorName != "" {
		if err := add(fieldErrorName, "s", func(b *Buffer) error { b.AppendString(m.errorName); return nil }); err != nil {
			return nil, err
		}
	}
	if m.hasReply {
		if err := add(fieldReplySerial, "u", func(b *Buffer) error { b.AppendUint32(m.replySerial); return nil }); err != nil {
			return nil, err
		}
	}
	if m.destination != "" {
		if err := add(fieldDestination, "s", func(b *Buffer) error { b.AppendString(m.destination); return nil }); err != nil {
			return nil, err
		}
	}
	if m.sender != "" {
		if err := add(fieldSender, "s", func(b *Buffer) error { b.AppendString(m.sender); return nil }); err != nil {
			return nil, err
		}
	}
	bodySig := m.Body.Signature()
	if bodySig != "" {
		if err := add(fieldSignature, "g", func(b *Buffer) error { b.AppendSignature(bodySig); return nil }); err != nil {
			return nil, err
		}
	}
	if err := hb.EndArray(); err != nil {
		return nil, err
	}
	return hb, nil
}

// Encode serializes the message to a complete wire byte slice without
// sending it anywhere. serial is used verbatim (callers obtain it from
// Connection.NextSerial beforehand if SetSerial was not called).
func (m *Marshaller) Encode(serial uint32) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if serial == 0 {
		return nil, fmt.Errorf("adbus: message serial must not be zero")
	}
	hb, err := m.encodeHeaderFields()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 16+len(hb.Bytes())+8+m.Body.Len())
	out = append(out, m.endian, byte(m.typ), byte(m.flags), 1)
	out = m.order.AppendUint32(out, uint32(m.Body.Len()))
	out = m.order.AppendUint32(out, serial)
	out = m.order.AppendUint32(out, uint32(len(hb.Bytes())))
	out = append(out, hb.Bytes()...)
	for len(out)%8 != 0 {
		out = append(out, 0)
	}
	out = append(out, m.Body.Bytes()...)

	if len(out) > maxMessageSize {
		return nil, fmt.Errorf("adbus: message of %d bytes exceeds %d byte limit", len(out), maxMessageSize)
	}
	return out, nil
}

// Send finalises the message against conn: it fills in the serial (from
// conn.NextSerial if SetSerial was not called), encodes the wire bytes and
// hands them to the connection's configured send callback.
func (m *Marshaller) Send(conn *Conn) (uint32, error) {
	serial := m.serial
	if !m.serialSet {
		serial = conn.NextSerial()
	}
	buf, err := m.Encode(serial)
	if err != nil {
		return 0, err
	}
	if err := conn.sendRaw(buf); err != nil {
		return 0, err
	}
	return serial, nil
}
