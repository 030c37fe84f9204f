package mask

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func defaultTables(t *testing.T) *Tables {
	t.Helper()
	tables, err := DefaultTables()
	require.NoError(t, err)
	return tables
}

func TestDefaultTables(t *testing.T) {
	tables := defaultTables(t)

	require.Len(t, tables.Mask1, 8)
	require.Len(t, tables.Mask2, 4)

	// Every group in the tables has a wire position, and vice versa
	seen := map[string]bool{}
	for _, g := range append(append(Table{}, tables.Mask1...), tables.Mask2...) {
		words, ok := Width(g.Name)
		require.True(t, ok, "group %s missing from FieldOrder", g.Name)
		assert.Len(t, g.Values, words, "group %s", g.Name)
		seen[g.Name] = true
	}
	assert.Len(t, seen, len(FieldOrder))
}

func TestTables_Lookup(t *testing.T) {
	tables := defaultTables(t)

	tests := []struct {
		name      string
		wantTable int
		wantBits  uint32
	}{
		{"accel_raw", Table1, 0xE0000000},
		{"imu_filtered", Table1, 0x00070000},
		{"emf_filtered", Table1, 0x00000060},
		{"quaternion", Table2, 0xF0000000},
		{"velocity", Table2, 0x01800000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, g, err := tables.Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTable, table)
			assert.Equal(t, tt.wantBits, g.Bits())
		})
	}

	_, _, err := tables.Lookup("nope")
	assert.True(t, errors.Is(err, ErrUnknownGroup))
}

func TestBits_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		in      string
		want    Bits
		wantErr bool
	}{
		{`"0004 0000"`, 0x00040000, false},
		{`"0x00008000"`, 0x00008000, false},
		{`0x80000000`, 0x80000000, false},
		{`32`, 32, false},
		{`"zz"`, 0, true},
		{`"1 0000 0000"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var b Bits
			err := yaml.Unmarshal([]byte(tt.in), &b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b)
		})
	}
}

func TestBits_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(Bits(0x00040000))
	require.NoError(t, err)
	assert.Contains(t, string(out), "0004 0000")
}

func TestLoadTables_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Table1File), []byte(`
- name: accel_raw
  values:
    - {name: x, mask: "0000 0001"}
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, Table2File), []byte("[]\n"), 0600))

	tables, err := LoadTables(dir)
	require.NoError(t, err)
	require.Len(t, tables.Mask1, 1)
	assert.Equal(t, uint32(1), tables.Mask1.Group("accel_raw").Bits())
	assert.Empty(t, tables.Mask2)

	_, err = LoadTables(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestParseTable_RequiresNames(t *testing.T) {
	_, err := ParseTable([]byte(`- values: []`))
	assert.Error(t, err)
}

func TestAccumulator_EnableIdempotent(t *testing.T) {
	acc := NewAccumulator(defaultTables(t))

	require.NoError(t, acc.Enable("imu_filtered", Table1))
	once1, once2 := acc.Masks()

	require.NoError(t, acc.Enable("imu_filtered", Table1))
	twice1, twice2 := acc.Masks()

	assert.Equal(t, uint32(0x00070000), once1)
	assert.Equal(t, once1, twice1)
	assert.Equal(t, once2, twice2)
}

func TestAccumulator_DisableRestores(t *testing.T) {
	acc := NewAccumulator(defaultTables(t))
	require.NoError(t, acc.Enable("accel_raw", Table1))
	before, _ := acc.Masks()

	require.NoError(t, acc.Enable("gyro_filtered", Table1))
	require.NoError(t, acc.Disable("gyro_filtered", Table1))
	after, _ := acc.Masks()
	assert.Equal(t, before, after)

	// Disabling again must not re-enable the bits
	require.NoError(t, acc.Disable("gyro_filtered", Table1))
	again, _ := acc.Masks()
	assert.Equal(t, before, again)

	// Disabling a never-enabled group is a no-op
	require.NoError(t, acc.Disable("emf_raw", Table1))
	noop, _ := acc.Masks()
	assert.Equal(t, before, noop)
}

func TestAccumulator_IndependentMasks(t *testing.T) {
	acc := NewAccumulator(defaultTables(t))
	require.NoError(t, acc.Enable("accel_raw", Table1))
	require.NoError(t, acc.Enable("odometer", Table2))

	m1, m2 := acc.Masks()
	assert.Equal(t, uint32(0xE0000000), m1)
	assert.Equal(t, uint32(0x0C000000), m2)

	acc.Reset()
	m1, m2 = acc.Masks()
	assert.Zero(t, m1)
	assert.Zero(t, m2)
}

func TestAccumulator_Errors(t *testing.T) {
	acc := NewAccumulator(defaultTables(t))

	err := acc.Enable("accel_raw", 3)
	assert.True(t, errors.Is(err, ErrUnknownTable))

	err = acc.Enable("quaternion", Table1)
	assert.True(t, errors.Is(err, ErrUnknownGroup))

	err = acc.Disable("bogus", Table2)
	assert.True(t, errors.Is(err, ErrUnknownGroup))
}

func TestOrder(t *testing.T) {
	noop := func([]byte) {}
	active := map[string]func([]byte){
		"velocity":     noop,
		"accel_raw":    noop,
		"imu_filtered": noop,
		"odometer":     nil,
		"not_a_group":  noop,
	}

	fields := Order(active)

	require.Len(t, fields, 3)
	assert.Equal(t, "accel_raw", fields[0].Name)
	assert.Equal(t, 3, fields[0].Words)
	assert.Equal(t, "imu_filtered", fields[1].Name)
	assert.Equal(t, "velocity", fields[2].Name)
	assert.Equal(t, 2, fields[2].Words)

	assert.Empty(t, Order(nil))
}
