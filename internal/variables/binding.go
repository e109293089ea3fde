// Package variables maps friendly variable names to controller identifiers and
// performs typed reads and writes through the session manager.
package variables

import (
	"fmt"
	"sort"
)

// Access is the direction a binding may be used in.
type Access int

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessReadWrite = AccessRead | AccessWrite
)

// ParseAccess parses "read", "write" or "readwrite".
func ParseAccess(s string) (Access, error) {
	switch s {
	case "read", "r":
		return AccessRead, nil
	case "write", "w":
		return AccessWrite, nil
	case "readwrite", "rw", "":
		return AccessReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access %q", s)
	}
}

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "readwrite"
	default:
		return "none"
	}
}

// MarshalText encodes the access direction by name.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Binding maps a friendly name to a controller identifier.
type Binding struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Access     Access `json:"access"`
}

// Readable reports whether the binding may be read.
func (b Binding) Readable() bool { return b.Access&AccessRead != 0 }

// Writable reports whether the binding may be written.
func (b Binding) Writable() bool { return b.Access&AccessWrite != 0 }

// Table is an immutable set of bindings keyed by friendly name.
type Table struct {
	bindings map[string]Binding
	names    []string
}

// NewTable validates bindings and builds a table. Names and identifiers must
// be non-empty and names unique.
func NewTable(bindings []Binding) (*Table, error) {
	t := &Table{bindings: make(map[string]Binding, len(bindings))}
	for _, b := range bindings {
		if b.Name == "" || b.Identifier == "" {
			return nil, fmt.Errorf("binding %q: name and identifier are required", b.Name)
		}
		if b.Access&AccessReadWrite == 0 {
			return nil, fmt.Errorf("binding %q: no access direction", b.Name)
		}
		if _, dup := t.bindings[b.Name]; dup {
			return nil, fmt.Errorf("binding %q defined twice", b.Name)
		}
		t.bindings[b.Name] = b
		t.names = append(t.names, b.Name)
	}
	sort.Strings(t.names)
	return t, nil
}

// DefaultBindings returns the canonical table of the sorting line PLC.
func DefaultBindings() []Binding {
	return []Binding{
		{Name: "belt.actual", Identifier: `ns=3;s="OPC_Daten"."Istwert Magnertband"`, Access: AccessRead},
		{Name: "belt.target", Identifier: `ns=3;s="OPC_Daten"."Sollwert Magnetband"`, Access: AccessReadWrite},
		{Name: "drum.actual", Identifier: `ns=3;s="OPC_Daten"."Istwert Magnettrommel"`, Access: AccessRead},
		{Name: "drum.target", Identifier: `ns=3;s="OPC_Daten"."Sollwert Magnettrommel"`, Access: AccessReadWrite},
		{Name: "feeder.actual", Identifier: `ns=3;s="OPC_Daten"."Istwert Zuführband"`, Access: AccessRead},
		{Name: "feeder.target", Identifier: `ns=3;s="OPC_Daten"."Sollwert Zuführband"`, Access: AccessReadWrite},
	}
}

// DefaultTable returns the table built from DefaultBindings.
func DefaultTable() *Table {
	t, err := NewTable(DefaultBindings())
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the binding for name.
func (t *Table) Lookup(name string) (Binding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// Bindings returns all bindings sorted by name.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, t.bindings[name])
	}
	return out
}

// Writable returns the names of all writable bindings, sorted.
func (t *Table) Writable() []string {
	var out []string
	for _, name := range t.names {
		if t.bindings[name].Writable() {
			out = append(out, name)
		}
	}
	return out
}
