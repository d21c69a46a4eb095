// Package imagetable implements the shared process image: the thirteen
// pointer matrices that the loaded program artifact and every plugin read
// and write, serialized by a single lock.
//
// Cell references are represented as uintptr rather than a typed Go
// pointer: once a program artifact is loaded, cells point at storage
// owned by that artifact's dynamic library, outside the Go runtime's
// memory, so treating them as opaque addresses rather than *T avoids a
// GC holding a live reference into memory that disappears when the
// library is closed.
package imagetable

import (
	"sync"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

// Capacity is the fixed size of every matrix (N in the spec).
const Capacity = 1024

// BitsPerCell is the width of a single boolean cell slot.
const BitsPerCell = 8

// Table is the shared process image. The zero value is an unbound,
// all-null table; New returns a pointer to one.
type Table struct {
	mu sync.Mutex

	BoolInput  [Capacity][BitsPerCell]uintptr
	BoolOutput [Capacity][BitsPerCell]uintptr

	ByteInput  [Capacity]uintptr
	ByteOutput [Capacity]uintptr

	IntInput  [Capacity]uintptr
	IntOutput [Capacity]uintptr

	DIntInput  [Capacity]uintptr
	DIntOutput [Capacity]uintptr

	LIntInput  [Capacity]uintptr
	LIntOutput [Capacity]uintptr

	IntMemory  [Capacity]uintptr
	DIntMemory [Capacity]uintptr
	LIntMemory [Capacity]uintptr

	// scratch cells for the fill-null-pointers policy, allocated fresh on
	// every bind and discarded on clear (see SPEC_FULL.md Part D item 5/7).
	scratchBool []byte
	scratchByte []byte
	scratchInt  []uint16
	scratchDInt []uint32
	scratchLInt []uint64
}

func New() *Table {
	return &Table{}
}

// Lock acquires the image-table lock. Scan thread and plugin threads must
// hold it for the entire duration of any read or write to a matrix or its
// target cell.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the image-table lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// Bind fills every still-null cell with a reference to a runtime-owned
// scratch cell of the correct width, after the artifact's
// setBufferPointers/glueVars sequence has populated the cells it uses.
// Must be called with the lock held.
func (t *Table) Bind() {
	log := logger.ImageTables()

	t.scratchBool = make([]byte, Capacity*BitsPerCell)
	t.scratchByte = make([]byte, Capacity)
	t.scratchInt = make([]uint16, Capacity)
	t.scratchDInt = make([]uint32, Capacity)
	t.scratchLInt = make([]uint64, Capacity*3) // input+output+memory share width

	filled := 0
	for i := 0; i < Capacity; i++ {
		for b := 0; b < BitsPerCell; b++ {
			if t.BoolInput[i][b] == 0 {
				t.BoolInput[i][b] = cellAddr(&t.scratchBool[i*BitsPerCell+b])
				filled++
			}
			if t.BoolOutput[i][b] == 0 {
				t.BoolOutput[i][b] = cellAddr(&t.scratchBool[i*BitsPerCell+b])
				filled++
			}
		}
		if t.ByteInput[i] == 0 {
			t.ByteInput[i] = cellAddr(&t.scratchByte[i])
			filled++
		}
		if t.ByteOutput[i] == 0 {
			t.ByteOutput[i] = cellAddr(&t.scratchByte[i])
			filled++
		}
		if t.IntInput[i] == 0 {
			t.IntInput[i] = cellAddr(&t.scratchInt[i])
			filled++
		}
		if t.IntOutput[i] == 0 {
			t.IntOutput[i] = cellAddr(&t.scratchInt[i])
			filled++
		}
		if t.DIntInput[i] == 0 {
			t.DIntInput[i] = cellAddr(&t.scratchDInt[i])
			filled++
		}
		if t.DIntOutput[i] == 0 {
			t.DIntOutput[i] = cellAddr(&t.scratchDInt[i])
			filled++
		}
		if t.LIntInput[i] == 0 {
			t.LIntInput[i] = cellAddr(&t.scratchLInt[i])
			filled++
		}
		if t.LIntOutput[i] == 0 {
			t.LIntOutput[i] = cellAddr(&t.scratchLInt[i])
			filled++
		}
		if t.IntMemory[i] == 0 {
			t.IntMemory[i] = cellAddr(&t.scratchInt[i])
			filled++
		}
		if t.DIntMemory[i] == 0 {
			t.DIntMemory[i] = cellAddr(&t.scratchDInt[i])
			filled++
		}
		if t.LIntMemory[i] == 0 {
			t.LIntMemory[i] = cellAddr(&t.scratchLInt[i])
			filled++
		}
	}
	log.Debug().Int("scratch_filled", filled).Msg("image table bound, null cells scratched")
}

// Clear reverts every cell reference to null. Must be called with the
// lock held, after the scan thread has been joined and before the
// artifact library handle is closed. Clears every field but mu in place:
// the caller is holding mu locked, so the struct's lock state itself must
// never be overwritten.
func (t *Table) Clear() {
	t.BoolInput = [Capacity][BitsPerCell]uintptr{}
	t.BoolOutput = [Capacity][BitsPerCell]uintptr{}

	t.ByteInput = [Capacity]uintptr{}
	t.ByteOutput = [Capacity]uintptr{}

	t.IntInput = [Capacity]uintptr{}
	t.IntOutput = [Capacity]uintptr{}

	t.DIntInput = [Capacity]uintptr{}
	t.DIntOutput = [Capacity]uintptr{}

	t.LIntInput = [Capacity]uintptr{}
	t.LIntOutput = [Capacity]uintptr{}

	t.IntMemory = [Capacity]uintptr{}
	t.DIntMemory = [Capacity]uintptr{}
	t.LIntMemory = [Capacity]uintptr{}

	t.scratchBool = nil
	t.scratchByte = nil
	t.scratchInt = nil
	t.scratchDInt = nil
	t.scratchLInt = nil
}

// Complete reports whether every cell in every matrix is currently
// non-null. Used to check P4 after Bind.
func (t *Table) Complete() bool {
	for i := 0; i < Capacity; i++ {
		for b := 0; b < BitsPerCell; b++ {
			if t.BoolInput[i][b] == 0 || t.BoolOutput[i][b] == 0 {
				return false
			}
		}
		if t.ByteInput[i] == 0 || t.ByteOutput[i] == 0 ||
			t.IntInput[i] == 0 || t.IntOutput[i] == 0 ||
			t.DIntInput[i] == 0 || t.DIntOutput[i] == 0 ||
			t.LIntInput[i] == 0 || t.LIntOutput[i] == 0 ||
			t.IntMemory[i] == 0 || t.DIntMemory[i] == 0 || t.LIntMemory[i] == 0 {
			return false
		}
	}
	return true
}

// AllNull reports whether every cell reference is null. Used to check P5
// after Clear.
func (t *Table) AllNull() bool {
	for i := 0; i < Capacity; i++ {
		for b := 0; b < BitsPerCell; b++ {
			if t.BoolInput[i][b] != 0 || t.BoolOutput[i][b] != 0 {
				return false
			}
		}
		if t.ByteInput[i] != 0 || t.ByteOutput[i] != 0 ||
			t.IntInput[i] != 0 || t.IntOutput[i] != 0 ||
			t.DIntInput[i] != 0 || t.DIntOutput[i] != 0 ||
			t.LIntInput[i] != 0 || t.LIntOutput[i] != 0 ||
			t.IntMemory[i] != 0 || t.DIntMemory[i] != 0 || t.LIntMemory[i] != 0 {
			return false
		}
	}
	return true
}

// Bases returns the thirteen matrix base addresses in the exact order
// the program artifact ABI's setBufferPointers expects them.
func (t *Table) Bases() [13]uintptr {
	return [13]uintptr{
		cellAddr(&t.BoolInput[0]), cellAddr(&t.BoolOutput[0]),
		cellAddr(&t.ByteInput[0]), cellAddr(&t.ByteOutput[0]),
		cellAddr(&t.IntInput[0]), cellAddr(&t.IntOutput[0]),
		cellAddr(&t.DIntInput[0]), cellAddr(&t.DIntOutput[0]),
		cellAddr(&t.LIntInput[0]), cellAddr(&t.LIntOutput[0]),
		cellAddr(&t.IntMemory[0]), cellAddr(&t.DIntMemory[0]), cellAddr(&t.LIntMemory[0]),
	}
}
