package bitmask

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// Width is the number of mask bits every Bitmask carries. Router and link
// mask bits are always in [0, Width).
const Width = 128

var outstanding atomic.Int64

// Bitmask is a fixed width set of mask bits.
//
// A Bitmask has a single owner, and must be released with Free exactly once.
// The number of live bitmasks is tracked so that ownership leaks can be observed.
type Bitmask struct {
	bits  *bitset.BitSet
	freed bool
}

// New creates a Bitmask. If initial is non-zero, every bit starts set.
func New(initial int) *Bitmask {
	b := bitset.New(Width)
	if initial != 0 {
		b.FlipRange(0, Width)
	}
	outstanding.Add(1)
	return &Bitmask{bits: b}
}

// Of creates a Bitmask with the given bits set. Out of range bits are ignored.
func Of(bits ...int) *Bitmask {
	m := New(0)
	for _, bit := range bits {
		if Valid(bit) {
			m.Set(bit)
		}
	}
	return m
}

// Outstanding returns the number of bitmasks that have been created but not freed.
func Outstanding() int64 {
	return outstanding.Load()
}

// Valid reports whether bit is a usable mask bit.
func Valid(bit int) bool {
	return bit >= 0 && bit < Width
}

func (m *Bitmask) Set(bit int) {
	m.bits.Set(uint(bit))
}

// Clear clears bit and reports whether it was previously set.
func (m *Bitmask) Clear(bit int) bool {
	was := m.bits.Test(uint(bit))
	m.bits.Clear(uint(bit))
	return was
}

func (m *Bitmask) Test(bit int) bool {
	return m.bits.Test(uint(bit))
}

func (m *Bitmask) Cardinality() int {
	return int(m.bits.Count())
}

// First returns the lowest set bit.
func (m *Bitmask) First() (int, bool) {
	i, ok := m.bits.NextSet(0)
	if !ok || i >= Width {
		return -1, false
	}
	return int(i), true
}

// Bits returns the set bits in ascending order.
func (m *Bitmask) Bits() []int {
	out := make([]int, 0, m.bits.Count())
	for i, ok := m.bits.NextSet(0); ok && i < Width; i, ok = m.bits.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// Free releases the bitmask. Freeing twice is an ownership bug and panics.
func (m *Bitmask) Free() {
	if m == nil {
		return
	}
	if m.freed {
		panic("bitmask: double free")
	}
	m.freed = true
	m.bits = nil
	outstanding.Add(-1)
}

func (m *Bitmask) String() string {
	if m == nil || m.freed {
		return "{}"
	}
	sb := strings.Builder{}
	sb.WriteString("{")
	for i, bit := range m.Bits() {
		if i != 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprint(bit))
	}
	sb.WriteString("}")
	return sb.String()
}
