package adbus

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Address is one parsed entry of a D-Bus server address string, per
// spec.md §6: "transport:key1=value1,key2=value2". A full address is a
// semicolon-separated list of these, tried in order until one connects.
type Address struct {
	Transport string
	Params    map[string]string
}

// ParseAddresses splits a D-Bus address string into its semicolon
// separated entries.
func ParseAddresses(s string) ([]Address, error) {
	var out []Address
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		a, err := parseOneAddress(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("adbus: empty address string")
	}
	return out, nil
}

func parseOneAddress(entry string) (Address, error) {
	colon := strings.IndexByte(entry, ':')
	if colon < 0 {
		return Address{}, fmt.Errorf("adbus: address entry missing transport prefix: %q", entry)
	}
	a := Address{Transport: entry[:colon], Params: make(map[string]string)}
	rest := entry[colon+1:]
	if rest == "" {
		return a, nil
	}
	for _, kv := range strings.Split(rest, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			return Address{}, fmt.Errorf("adbus: malformed address key=value pair: %q", kv)
		}
		key := kv[:eq]
		val, err := unescapeAddressValue(kv[eq+1:])
		if err != nil {
			return Address{}, err
		}
		a.Params[key] = val
	}
	return a, nil
}

// unescapeAddressValue decodes the percent-escaping D-Bus addresses use
// for bytes outside the permitted value character set.
func unescapeAddressValue(v string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '%' {
			b.WriteByte(v[i])
			continue
		}
		if i+2 >= len(v) {
			return "", fmt.Errorf("adbus: truncated percent-escape in address value %q", v)
		}
		hi, lo := fromHex(v[i+1]), fromHex(v[i+2])
		if hi < 0 || lo < 0 {
			return "", fmt.Errorf("adbus: invalid percent-escape in address value %q", v)
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String(), nil
}

func fromHex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// TCPParams is the decoded parameter set of a "tcp:" address.
type TCPParams struct {
	Host   string `mapstructure:"host"`
	Port   string `mapstructure:"port"`
	Family string `mapstructure:"family"`
}

// UnixParams is the decoded parameter set of a "unix:" address.
type UnixParams struct {
	Path     string `mapstructure:"path"`
	Abstract string `mapstructure:"abstract"`
}

// decodeParams uses mapstructure the way the rest of the stack decodes
// loosely-typed string maps into concrete structs, so address parameter
// decoding follows the same pattern as configuration loading instead of
// a bespoke set of string-map accessors.
func decodeParams(params map[string]string, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	generic := make(map[string]any, len(params))
	for k, v := range params {
		generic[k] = v
	}
	return dec.Decode(generic)
}

// TCP decodes this Address as tcp: parameters.
func (a Address) TCP() (TCPParams, error) {
	var p TCPParams
	err := decodeParams(a.Params, &p)
	return p, err
}

// Unix decodes this Address as unix: parameters.
func (a Address) Unix() (UnixParams, error) {
	var p UnixParams
	err := decodeParams(a.Params, &p)
	return p, err
}
