package adbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// MethodFunc handles an incoming method call. args is an Iterator over the
// call's body, scoped to the method's declared input signature. Results
// are appended to reply in the method's declared output signature and
// order. Returning a non-nil error causes the dispatcher to send a D-Bus
// error reply (see HandlerError for controlling its error name).
type MethodFunc func(ctx context.Context, args *Iterator, reply *Buffer) error

// PropertyGetFunc returns the current value of a property.
type PropertyGetFunc func(ctx context.Context) (Variant, error)

// PropertySetFunc applies a new value to a property.
type PropertySetFunc func(ctx context.Context, v Variant) error

// HandlerError lets a MethodFunc or PropertySetFunc control the D-Bus
// error name sent back to the caller; without it, dispatch falls back to
// org.freedesktop.DBus.Error.Failed (spec.md §7).
type HandlerError struct {
	Name    string
	Message string
}

func (e *HandlerError) Error() string { return fmt.Sprintf("%s: %s", e.Name, e.Message) }

// NewHandlerError builds a HandlerError with the given D-Bus error name.
func NewHandlerError(name, message string) *HandlerError {
	return &HandlerError{Name: name, Message: message}
}

// Method describes one callable member of an Interface.
type Method struct {
	InSignature  string
	OutSignature string
	ArgNames     []string
	ResultNames  []string
	Annotations  map[string]string
	Handler      MethodFunc
}

// Signal describes a broadcastable member of an Interface.
type Signal struct {
	Signature   string
	ArgNames    []string
	Annotations map[string]string
}

// Property describes a gettable/settable member of an Interface. Getter
// and/or Setter may be nil to make a property write-only or read-only
// respectively.
type Property struct {
	Signature   string
	Getter      PropertyGetFunc
	Setter      PropertySetFunc
	Annotations map[string]string
}

type memberKind int

const (
	memberMethod memberKind = iota
	memberSignal
	memberProperty
)

type member struct {
	kind     memberKind
	method   *Method
	signal   *Signal
	property *Property
}

// Interface is a named, ordered collection of methods, signals and
// properties, per spec.md §4.F. It is mutable until first bound to a
// connection (see Conn.Bind); after that its contents are observed by
// concurrent dispatch and must not be mutated.
//
// Interface is reference-counted: Ref/Unref mirror the source library's
// manual lifetime management, collapsed here into an atomic counter whose
// last-drop path runs registered release hooks exactly once.
type Interface struct {
	Name string

	mu      sync.RWMutex
	order   []string
	members map[string]*member
	frozen  bool

	refs    atomic.Int32
	release []func()
}

// NewInterface creates an empty, mutable Interface. name must satisfy
// ValidateInterfaceName.
func NewInterface(name string) (*Interface, error) {
	if err := ValidateInterfaceName(name); err != nil {
		return nil, err
	}
	i := &Interface{Name: name, members: make(map[string]*member)}
	i.refs.Store(1)
	return i, nil
}

// Ref increments the reference count and returns the Interface for
// chaining.
func (i *Interface) Ref() *Interface {
	i.refs.Add(1)
	return i
}

// OnRelease registers a hook invoked exactly once when the last reference
// is dropped (method/property/signal callback cleanup).
func (i *Interface) OnRelease(f func()) {
	i.mu.Lock()
	i.release = append(i.release, f)
	i.mu.Unlock()
}

// Unref decrements the reference count, running release hooks and
// discarding all members when it reaches zero.
func (i *Interface) Unref() {
	if i.refs.Add(-1) > 0 {
		return
	}
	i.mu.Lock()
	hooks := i.release
	i.release = nil
	i.members = nil
	i.order = nil
	i.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

func (i *Interface) checkMutable() error {
	if i.frozen {
		return fmt.Errorf("adbus: interface %q is frozen after first bind", i.Name)
	}
	return nil
}

// freeze marks the Interface read-only; called by Conn.Bind the first
// time the Interface is attached to a path.
func (i *Interface) freeze() {
	i.mu.Lock()
	i.frozen = true
	i.mu.Unlock()
}

// AddMethod registers a method under name, which must satisfy
// ValidateMemberName and be unique within the interface.
func (i *Interface) AddMethod(name string, m Method) error {
	if err := ValidateMemberName(name); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.checkMutable(); err != nil {
		return err
	}
	if _, exists := i.members[name]; exists {
		return fmt.Errorf("adbus: interface %q already has a member %q", i.Name, name)
	}
	mm := m
	i.members[name] = &member{kind: memberMethod, method: &mm}
	i.order = append(i.order, name)
	return nil
}

// AddSignal registers a signal under name.
func (i *Interface) AddSignal(name string, s Signal) error {
	if err := ValidateMemberName(name); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.checkMutable(); err != nil {
		return err
	}
	if _, exists := i.members[name]; exists {
		return fmt.Errorf("adbus: interface %q already has a member %q", i.Name, name)
	}
	ss := s
	i.members[name] = &member{kind: memberSignal, signal: &ss}
	i.order = append(i.order, name)
	return nil
}

// AddProperty registers a property under name.
func (i *Interface) AddProperty(name string, p Property) error {
	if err := ValidateMemberName(name); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.checkMutable(); err != nil {
		return err
	}
	if _, exists := i.members[name]; exists {
		return fmt.Errorf("adbus: interface %q already has a member %q", i.Name, name)
	}
	pp := p
	i.members[name] = &member{kind: memberProperty, property: &pp}
	i.order = append(i.order, name)
	return nil
}

// FindMethod looks up a method by name.
func (i *Interface) FindMethod(name string) (*Method, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	m, ok := i.members[name]
	if !ok || m.kind != memberMethod {
		return nil, false
	}
	return m.method, true
}

// FindSignal looks up a signal by name.
func (i *Interface) FindSignal(name string) (*Signal, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	m, ok := i.members[name]
	if !ok || m.kind != memberSignal {
		return nil, false
	}
	return m.signal, true
}

// FindProperty looks up a property by name.
func (i *Interface) FindProperty(name string) (*Property, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	m, ok := i.members[name]
	if !ok || m.kind != memberProperty {
		return nil, false
	}
	return m.property, true
}

// HasMember reports whether the interface has any member (of any kind)
// with the given name, used by Conn's no-interface-specified method
// dispatch fallback (spec.md §4.G step 2).
func (i *Interface) HasMember(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.members[name]
	return ok
}

// Members returns member names in declaration order, for introspection.
func (i *Interface) Members() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}
