package mask

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table file names, both embedded and in an override directory
const (
	Table1File = "mask_list1.yaml"
	Table2File = "mask_list2.yaml"
)

// Table identifiers
const (
	Table1 = 1
	Table2 = 2
)

var (
	// ErrUnknownGroup is returned for a group name absent from the tables
	ErrUnknownGroup = errors.New("unknown sensor group")

	// ErrUnknownTable is returned for a table id other than 1 or 2
	ErrUnknownTable = errors.New("unknown mask table")
)

//go:embed data/mask_list1.yaml data/mask_list2.yaml
var defaultFS embed.FS

// Bits is a 32-bit mask pattern. In YAML it may be written as a hex string
// with optional spaces ("0004 0000", "0x00040000") or as an integer.
type Bits uint32

// UnmarshalYAML implements yaml.Unmarshaler
func (b *Bits) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: mask must be a scalar", node.Line)
	}

	var (
		v   uint64
		err error
	)
	if node.Tag == "!!int" {
		v, err = strconv.ParseUint(node.Value, 0, 32)
	} else {
		s := strings.ReplaceAll(node.Value, " ", "")
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		v, err = strconv.ParseUint(s, 16, 32)
	}
	if err != nil {
		return fmt.Errorf("line %d: invalid mask %q: %w", node.Line, node.Value, err)
	}

	*b = Bits(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (b Bits) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("%04X %04X", uint32(b)>>16, uint32(b)&0xFFFF), nil
}

// Value is one sub-field of a sensor group and its enable bit
type Value struct {
	Name string `yaml:"name"`
	Mask Bits   `yaml:"mask"`
}

// Group is a named sensor group and the bits that enable its sub-fields
type Group struct {
	Name   string  `yaml:"name"`
	Values []Value `yaml:"values"`
}

// Bits returns the union of every sub-field's pattern
func (g *Group) Bits() uint32 {
	var bits uint32
	for _, v := range g.Values {
		bits |= uint32(v.Mask)
	}
	return bits
}

// FieldNames returns the sub-field names in table order
func (g *Group) FieldNames() []string {
	names := make([]string, len(g.Values))
	for i, v := range g.Values {
		names[i] = v.Name
	}
	return names
}

// Table is an ordered list of groups for one mask address space
type Table []Group

// Group returns the named group, or nil
func (t Table) Group(name string) *Group {
	for i := range t {
		if t[i].Name == name {
			return &t[i]
		}
	}
	return nil
}

// Tables holds both mask configuration tables. It is read-only once loaded.
type Tables struct {
	Mask1 Table
	Mask2 Table
}

// Table returns the table for id 1 or 2
func (t *Tables) Table(id int) (Table, error) {
	switch id {
	case Table1:
		return t.Mask1, nil
	case Table2:
		return t.Mask2, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTable, id)
	}
}

// Lookup finds a group by name in either table and reports which table
// holds it.
func (t *Tables) Lookup(name string) (int, *Group, error) {
	if g := t.Mask1.Group(name); g != nil {
		return Table1, g, nil
	}
	if g := t.Mask2.Group(name); g != nil {
		return Table2, g, nil
	}
	return 0, nil, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
}

// ParseTable decodes one YAML mask table
func ParseTable(data []byte) (Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse mask table: %w", err)
	}
	for i, g := range table {
		if g.Name == "" {
			return nil, fmt.Errorf("mask table entry %d has no name", i)
		}
	}
	return table, nil
}

// DefaultTables returns the tables compiled into the binary
func DefaultTables() (*Tables, error) {
	return loadFrom(func(name string) ([]byte, error) {
		return defaultFS.ReadFile("data/" + name)
	})
}

// LoadTables reads mask_list1.yaml and mask_list2.yaml from dir. An empty
// dir returns the compiled-in defaults.
func LoadTables(dir string) (*Tables, error) {
	if dir == "" {
		return DefaultTables()
	}
	return loadFrom(func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	})
}

func loadFrom(read func(string) ([]byte, error)) (*Tables, error) {
	tables := &Tables{}
	for _, f := range []struct {
		name string
		dst  *Table
	}{
		{Table1File, &tables.Mask1},
		{Table2File, &tables.Mask2},
	} {
		data, err := read(f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		table, err := ParseTable(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = table
	}
	return tables, nil
}
