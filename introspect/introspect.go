// Package introspect renders the org.freedesktop.DBus.Introspectable XML
// document for a set of bound interfaces and child object paths, the
// standard discovery mechanism D-Bus tooling (d-feet, busctl, this
// module's own adbusctl) relies on.
package introspect

import (
	"fmt"
	"sort"
	"strings"
)

// ArgDoc describes one method/signal argument for introspection purposes.
type ArgDoc struct {
	Name      string
	Signature string
	Direction string // "in" or "out"
}

// MethodDoc describes one introspectable method.
type MethodDoc struct {
	Name         string
	InSignature  string
	OutSignature string
	ArgNames     []string
	ResultNames  []string
}

// SignalDoc describes one introspectable signal.
type SignalDoc struct {
	Name      string
	Signature string
	ArgNames  []string
}

// PropertyDoc describes one introspectable property.
type PropertyDoc struct {
	Name      string
	Signature string
	ReadOnly  bool
	WriteOnly bool
}

// InterfaceDoc is everything introspection needs to know about one bound
// Interface, decoupled from the adbus package's own Interface/Method
// types so this package has no import-cycle-creating dependency back on
// the core.
type InterfaceDoc struct {
	Name       string
	Methods    []MethodDoc
	Signals    []SignalDoc
	Properties []PropertyDoc
}

const header = `<!DOCTYPE node PUBLIC "-//freedesktop//DTD D-BUS Object Introspection 1.0//EN"
 "http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd">
`

// Document renders the introspection XML for a single object path: its
// interfaces, with no child <node/> entries.
func Document(ifaces []InterfaceDoc) string {
	return Tree(ifaces, nil)
}

// Tree renders the introspection XML for an object path including child
// relative path segments, per the <node name="child"/> convention that
// lets a client walk the object tree one Introspect call at a time.
func Tree(ifaces []InterfaceDoc, children []string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<node>\n")

	sorted := append([]InterfaceDoc(nil), ifaces...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, iface := range sorted {
		writeInterface(&b, iface)
	}

	sortedChildren := append([]string(nil), children...)
	sort.Strings(sortedChildren)
	for _, c := range sortedChildren {
		fmt.Fprintf(&b, "  <node name=%q/>\n", c)
	}

	b.WriteString("</node>\n")
	return b.String()
}

func writeInterface(b *strings.Builder, iface InterfaceDoc) {
	fmt.Fprintf(b, "  <interface name=%q>\n", iface.Name)

	methods := append([]MethodDoc(nil), iface.Methods...)
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	for _, m := range methods {
		fmt.Fprintf(b, "    <method name=%q>\n", m.Name)
		writeArgs(b, m.InSignature, m.ArgNames, "in")
		writeArgs(b, m.OutSignature, m.ResultNames, "out")
		b.WriteString("    </method>\n")
	}

	signals := append([]SignalDoc(nil), iface.Signals...)
	sort.Slice(signals, func(i, j int) bool { return signals[i].Name < signals[j].Name })
	for _, s := range signals {
		fmt.Fprintf(b, "    <signal name=%q>\n", s.Name)
		writeArgs(b, s.Signature, s.ArgNames, "")
		b.WriteString("    </signal>\n")
	}

	props := append([]PropertyDoc(nil), iface.Properties...)
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	for _, p := range props {
		access := "readwrite"
		switch {
		case p.ReadOnly:
			access = "read"
		case p.WriteOnly:
			access = "write"
		}
		fmt.Fprintf(b, "    <property name=%q type=%q access=%q/>\n", p.Name, p.Signature, access)
	}

	b.WriteString("  </interface>\n")
}

// writeArgs splits sig into its top-level single-character-or-container
// types in signature order, pairing each with a name from
// names when available.
func writeArgs(b *strings.Builder, sig string, names []string, direction string) {
	types := splitTypes(sig)
	for i, t := range types {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if direction != "" {
			fmt.Fprintf(b, "      <arg name=%q type=%q direction=%q/>\n", name, t, direction)
		} else {
			fmt.Fprintf(b, "      <arg name=%q type=%q/>\n", name, t)
		}
	}
}

// splitTypes breaks a signature into its top-level complete types without
// depending on the core package's signature parser, so introspect stays
// import-cycle free; it duplicates a small amount of bracket-matching
// logic rather than exporting the core's internal parser.
func splitTypes(sig string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(sig); i++ {
		switch sig[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		}
		if depth == 0 {
			// A complete type ends here unless it's an array marker 'a',
			// which always prefixes another complete type.
			if sig[i] == 'a' {
				continue
			}
			out = append(out, sig[start:i+1])
			start = i + 1
		}
	}
	return out
}
