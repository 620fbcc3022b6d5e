package adbus

import (
	"fmt"
	"sync"
)

// Binding attaches a ref'd Interface to an object path on a Conn, per
// spec.md §4.H. Conn.Bind returns one; Unbind (or calling its Remove)
// detaches it and drops the Conn's reference to the Interface.
type Binding struct {
	conn  *Conn
	path  string
	iface string
}

// Path returns the object path this Binding is attached to.
func (b *Binding) Path() string { return b.path }

// Interface returns the bound interface's name.
func (b *Binding) Interface() string { return b.iface }

// Remove detaches the binding. Safe to call more than once.
func (b *Binding) Remove() {
	b.conn.unbind(b.path, b.iface)
}

// bindKey uniquely identifies a binding, per spec.md §4.H's uniqueness
// rule: (path, interface name) pairs cannot be bound twice.
type bindKey struct {
	path  string
	iface string
}

// bindTree holds every locally-exported object on a Conn, indexed by
// path, and every Interface bound at that path indexed by name.
type bindTree struct {
	mu    sync.RWMutex
	byKey map[bindKey]*Interface
	paths map[string]map[string]*Interface // path -> iface name -> Interface
}

func newBindTree() *bindTree {
	return &bindTree{
		byKey: make(map[bindKey]*Interface),
		paths: make(map[string]map[string]*Interface),
	}
}

func (t *bindTree) bind(path string, iface *Interface) error {
	if err := ValidateObjectPath(path); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := bindKey{path, iface.Name}
	if _, exists := t.byKey[key]; exists {
		return fmt.Errorf("adbus: interface %q already bound at %q", iface.Name, path)
	}
	iface.freeze()
	iface.Ref()
	t.byKey[key] = iface
	if t.paths[path] == nil {
		t.paths[path] = make(map[string]*Interface)
	}
	t.paths[path][iface.Name] = iface
	return nil
}

func (t *bindTree) unbind(path, ifaceName string) bool {
	t.mu.Lock()
	key := bindKey{path, ifaceName}
	iface, ok := t.byKey[key]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.byKey, key)
	if m := t.paths[path]; m != nil {
		delete(m, ifaceName)
		if len(m) == 0 {
			delete(t.paths, path)
		}
	}
	t.mu.Unlock()
	iface.Unref()
	return true
}

// lookup returns the Interface bound at (path, ifaceName).
func (t *bindTree) lookup(path, ifaceName string) (*Interface, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.byKey[bindKey{path, ifaceName}]
	return i, ok
}

// lookupAny returns every Interface bound at path, for the
// no-interface-specified dispatch fallback and for introspection.
func (t *bindTree) lookupAny(path string) []*Interface {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m := t.paths[path]
	out := make([]*Interface, 0, len(m))
	for _, i := range m {
		out = append(out, i)
	}
	return out
}

// children returns the direct child path segments of path that have at
// least one binding at or below them, for introspection's <node/> tree.
func (t *bindTree) children(path string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	prefix := path
	if prefix != "/" {
		prefix += "/"
	}
	seen := make(map[string]struct{})
	for p := range t.paths {
		if p == path || len(p) <= len(prefix) || p[:len(prefix)] != prefix {
			continue
		}
		rest := p[len(prefix):]
		for i := 0; i < len(rest); i++ {
			if rest[i] == '/' {
				rest = rest[:i]
				break
			}
		}
		seen[rest] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	return out
}

func (t *bindTree) releaseAll() {
	t.mu.Lock()
	ifaces := make([]*Interface, 0, len(t.byKey))
	for _, i := range t.byKey {
		ifaces = append(ifaces, i)
	}
	t.byKey = make(map[bindKey]*Interface)
	t.paths = make(map[string]map[string]*Interface)
	t.mu.Unlock()
	for _, i := range ifaces {
		i.Unref()
	}
}
