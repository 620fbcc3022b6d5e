package adbus

import (
	"fmt"
	"strings"
)

// Type is a single D-Bus signature type code.
type Type byte

// Primitive and container type codes, per the D-Bus wire protocol.
const (
	TypeByte      Type = 'y'
	TypeBool      Type = 'b'
	TypeInt16     Type = 'n'
	TypeUint16    Type = 'q'
	TypeInt32     Type = 'i'
	TypeUint32    Type = 'u'
	TypeInt64     Type = 'x'
	TypeUint64    Type = 't'
	TypeDouble    Type = 'd'
	TypeString    Type = 's'
	TypeObjectPath Type = 'o'
	TypeSignature Type = 'g'
	TypeVariant   Type = 'v'
	TypeArray     Type = 'a'
	typeStructOpen  Type = '('
	typeStructClose Type = ')'
	typeDictOpen    Type = '{'
	typeDictClose   Type = '}'
)

// fixedSizes gives the wire size in bytes of fixed-width primitive types.
var fixedSizes = map[Type]int{
	TypeByte:   1,
	TypeBool:   4,
	TypeInt16:  2,
	TypeUint16: 2,
	TypeInt32:  4,
	TypeUint32: 4,
	TypeInt64:  8,
	TypeUint64: 8,
	TypeDouble: 8,
}

// alignmentOf returns the natural alignment, in bytes, of the value whose
// signature starts with t. Containers align as noted in spec.md §3: arrays
// align to their length prefix (4), structs and dict entries to 8.
func alignmentOf(t Type) int {
	switch t {
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeBool, TypeArray, TypeString, TypeObjectPath:
		return 4
	case TypeInt64, TypeUint64, TypeDouble:
		return 8
	case typeStructOpen, typeDictOpen:
		return 8
	case TypeByte, TypeSignature, TypeVariant:
		return 1
	default:
		return 1
	}
}

// padding returns the number of zero bytes needed so that offset+padding is
// a multiple of align.
func padding(offset, align int) int {
	if align <= 1 {
		return 0
	}
	rem := offset % align
	if rem == 0 {
		return 0
	}
	return align - rem
}

// ValidateSignature checks that sig is a well-formed, fully-closed D-Bus
// type signature: every container is balanced and every leaf character is
// one of the known type codes.
func ValidateSignature(sig string) error {
	_, rest, err := validateOne(sig)
	if err != nil {
		return err
	}
	if rest != "" {
		// A signature may describe a sequence of top-level complete
		// types; keep validating until exhausted.
		return ValidateSignature(rest)
	}
	return nil
}

// validateOne consumes exactly one complete type from sig and returns the
// remaining, unconsumed signature.
func validateOne(sig string) (Type, string, error) {
	if sig == "" {
		return 0, "", fmt.Errorf("adbus: empty signature")
	}
	t := Type(sig[0])
	rest := sig[1:]
	switch t {
	case TypeByte, TypeBool, TypeInt16, TypeUint16, TypeInt32, TypeUint32,
		TypeInt64, TypeUint64, TypeDouble, TypeString, TypeObjectPath,
		TypeSignature, TypeVariant:
		return t, rest, nil
	case TypeArray:
		if rest == "" {
			return 0, "", fmt.Errorf("adbus: array signature missing element type")
		}
		// dict entries are only legal directly inside an array.
		if rest[0] == byte(typeDictOpen) {
			_, r, err := validateDictEntry(rest)
			return t, r, err
		}
		_, r, err := validateOne(rest)
		return t, r, err
	case typeStructOpen:
		r := rest
		if r == "" || r[0] == byte(typeStructClose) {
			return 0, "", fmt.Errorf("adbus: empty struct signature")
		}
		for r != "" && r[0] != byte(typeStructClose) {
			var err error
			_, r, err = validateOne(r)
			if err != nil {
				return 0, "", err
			}
		}
		if r == "" {
			return 0, "", fmt.Errorf("adbus: unterminated struct signature")
		}
		return t, r[1:], nil
	default:
		return 0, "", fmt.Errorf("adbus: unknown signature type code %q", sig[0])
	}
}

// validateDictEntry consumes a '{KV}' dict-entry signature. sig must start
// with '{'.
func validateDictEntry(sig string) (Type, string, error) {
	r := sig[1:]
	if r == "" {
		return 0, "", fmt.Errorf("adbus: unterminated dict entry")
	}
	keyType := Type(r[0])
	if isContainer(keyType) {
		return 0, "", fmt.Errorf("adbus: dict entry key must be a basic type, got %q", r[0])
	}
	var err error
	_, r, err = validateOne(r)
	if err != nil {
		return 0, "", err
	}
	if r == "" {
		return 0, "", fmt.Errorf("adbus: dict entry missing value type")
	}
	_, r, err = validateOne(r)
	if err != nil {
		return 0, "", err
	}
	if r == "" || r[0] != byte(typeDictClose) {
		return 0, "", fmt.Errorf("adbus: unterminated dict entry")
	}
	return typeDictOpen, r[1:], nil
}

func isContainer(t Type) bool {
	switch t {
	case TypeArray, typeStructOpen, typeDictOpen, TypeVariant:
		return true
	default:
		return false
	}
}

// ValidateInterfaceName checks the dotted-name grammar used for interface
// and well-known bus names: two or more '.'-separated elements, each
// starting with a letter or underscore and containing only
// [A-Za-z0-9_].
func ValidateInterfaceName(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("adbus: interface name length out of range: %q", name)
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return fmt.Errorf("adbus: interface name must have at least two elements: %q", name)
	}
	for _, p := range parts {
		if err := validateNameElement(p); err != nil {
			return fmt.Errorf("adbus: invalid interface name %q: %w", name, err)
		}
	}
	return nil
}

func validateNameElement(p string) error {
	if p == "" {
		return fmt.Errorf("empty element")
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if i == 0 && isDigit {
			return fmt.Errorf("element %q starts with a digit", p)
		}
		if !isAlpha && !isDigit {
			return fmt.Errorf("element %q has invalid character %q", p, c)
		}
	}
	return nil
}

// ValidateMemberName checks the grammar for method, signal and property
// names: a single element, same character rules as ValidateInterfaceName.
func ValidateMemberName(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("adbus: member name length out of range: %q", name)
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("adbus: member name must not contain '.': %q", name)
	}
	if err := validateNameElement(name); err != nil {
		return fmt.Errorf("adbus: invalid member name %q: %w", name, err)
	}
	return nil
}

// ValidateObjectPath checks the object path grammar: starts with '/', each
// segment non-empty and [A-Za-z0-9_], no trailing '/' unless the whole
// path is "/".
func ValidateObjectPath(path string) error {
	if path == "" || path[0] != '/' {
		return fmt.Errorf("adbus: object path must start with '/': %q", path)
	}
	if path == "/" {
		return nil
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("adbus: object path must not end with '/': %q", path)
	}
	for _, seg := range strings.Split(path[1:], "/") {
		if seg == "" {
			return fmt.Errorf("adbus: object path has empty segment: %q", path)
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
			isDigit := c >= '0' && c <= '9'
			if !isAlpha && !isDigit {
				return fmt.Errorf("adbus: object path segment %q has invalid character %q", seg, c)
			}
		}
	}
	return nil
}
