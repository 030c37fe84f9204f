package mask

import (
	"fmt"
	"sync"
)

// Accumulator tracks the two streaming enable masks. Enabling a group sets
// its bits; disabling clears them. Both are idempotent, so repeated calls in
// either direction leave the masks unchanged.
type Accumulator struct {
	mu     sync.Mutex
	tables *Tables
	mask1  uint32
	mask2  uint32
}

// NewAccumulator creates an accumulator with both masks clear
func NewAccumulator(tables *Tables) *Accumulator {
	return &Accumulator{tables: tables}
}

// Enable sets every bit of the named group in the given table's mask
func (a *Accumulator) Enable(name string, table int) error {
	bits, err := a.groupBits(name, table)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	*a.maskFor(table) |= bits
	return nil
}

// Disable clears every bit of the named group in the given table's mask
func (a *Accumulator) Disable(name string, table int) error {
	bits, err := a.groupBits(name, table)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	*a.maskFor(table) &^= bits
	return nil
}

// Masks returns the current mask1 and mask2 values
func (a *Accumulator) Masks() (uint32, uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mask1, a.mask2
}

// Reset clears both masks
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mask1, a.mask2 = 0, 0
}

// Tables returns the configuration tables the accumulator resolves names in
func (a *Accumulator) Tables() *Tables {
	return a.tables
}

func (a *Accumulator) groupBits(name string, table int) (uint32, error) {
	t, err := a.tables.Table(table)
	if err != nil {
		return 0, err
	}
	g := t.Group(name)
	if g == nil {
		return 0, fmt.Errorf("%w: %q in table %d", ErrUnknownGroup, name, table)
	}
	return g.Bits(), nil
}

// maskFor must be called with mu held and a validated table id
func (a *Accumulator) maskFor(table int) *uint32 {
	if table == Table2 {
		return &a.mask2
	}
	return &a.mask1
}
