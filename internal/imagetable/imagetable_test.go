package imagetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsAllNull(t *testing.T) {
	tbl := New()
	assert.True(t, tbl.AllNull())
	assert.False(t, tbl.Complete())
}

func TestBindFillsEveryCell(t *testing.T) {
	tbl := New()
	tbl.Lock()
	tbl.Bind()
	tbl.Unlock()

	assert.True(t, tbl.Complete())
	assert.False(t, tbl.AllNull())
}

func TestBindPreservesProgramOwnedCells(t *testing.T) {
	tbl := New()
	var owned byte = 7
	tbl.ByteInput[3] = cellAddr(&owned)

	tbl.Lock()
	tbl.Bind()
	tbl.Unlock()

	assert.Equal(t, cellAddr(&owned), tbl.ByteInput[3])
	assert.True(t, tbl.Complete())
}

func TestClearResetsToAllNull(t *testing.T) {
	tbl := New()
	tbl.Lock()
	tbl.Bind()
	tbl.Unlock()
	require.True(t, tbl.Complete())

	tbl.Lock()
	tbl.Clear()
	tbl.Unlock()

	assert.True(t, tbl.AllNull())
}

func TestBasesOrderMatchesABI(t *testing.T) {
	tbl := New()
	tbl.Lock()
	tbl.Bind()
	bases := tbl.Bases()
	tbl.Unlock()

	require.Len(t, bases, 13)
	assert.Equal(t, cellAddr(&tbl.BoolInput[0]), bases[0])
	assert.Equal(t, cellAddr(&tbl.BoolOutput[0]), bases[1])
	assert.Equal(t, cellAddr(&tbl.LIntMemory[0]), bases[12])
	for _, b := range bases {
		assert.NotZero(t, b)
	}
}
