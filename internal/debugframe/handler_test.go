package debugframe

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgram struct {
	vars      []byte
	varCount  int32
	lastTrace struct {
		idx, forced int32
		val         uintptr
	}
	endianness int32
}

func (f *fakeProgram) GetVarCount() int32         { return f.varCount }
func (f *fakeProgram) GetVarSize(idx int32) int32 { return 1 }
func (f *fakeProgram) GetVarAddr(idx int32) uintptr {
	return uintptr(unsafe.Pointer(&f.vars[idx]))
}
func (f *fakeProgram) SetTrace(idx int32, forced int32, val uintptr) {
	f.lastTrace.idx, f.lastTrace.forced, f.lastTrace.val = idx, forced, val
}
func (f *fakeProgram) SetEndianness(v int32) { f.endianness = v }

func newFakeProgram() *fakeProgram {
	return &fakeProgram{vars: []byte{10, 20, 30, 40}, varCount: 4}
}

func TestHandlerInfo(t *testing.T) {
	h := NewHandler(newFakeProgram(), func() string { return "abc" }, func() uint32 { return 1 })
	reply := h.Handle([]byte{CodeInfo})
	assert.Equal(t, BuildInfoReply(4), reply)
}

func TestHandlerSetTraceOutOfBounds(t *testing.T) {
	h := NewHandler(newFakeProgram(), func() string { return "" }, func() uint32 { return 0 })
	reply := h.Handle([]byte{CodeSetTrace, 0x00, 0x64, 0x00, 0x00, 0x00, 0x00, 0x00})
	assert.Equal(t, BuildSetTraceReply(StatusOutOfBounds), reply)
}

func TestHandlerSetTraceOK(t *testing.T) {
	p := newFakeProgram()
	h := NewHandler(p, func() string { return "" }, func() uint32 { return 0 })
	reply := h.Handle([]byte{CodeSetTrace, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x09})
	assert.Equal(t, BuildSetTraceReply(StatusOK), reply)
	assert.Equal(t, int32(1), p.lastTrace.idx)
	assert.Equal(t, int32(1), p.lastTrace.forced)
}

func TestHandlerGetTrace(t *testing.T) {
	h := NewHandler(newFakeProgram(), func() string { return "" }, func() uint32 { return 7 })
	reply := h.Handle([]byte{CodeGetTrace, 0x00, 0x00, 0x00, 0x01})
	require.NotEmpty(t, reply)
	assert.Equal(t, CodeGetTrace, reply[0])
	assert.Equal(t, StatusOK, reply[1])
}

func TestHandlerGetMD5(t *testing.T) {
	h := NewHandler(newFakeProgram(), func() string { return "deadbeef" }, func() uint32 { return 0 })
	reply := h.Handle([]byte{CodeGetMD5, 0xDE, 0xAD})
	assert.Equal(t, BuildMD5Reply(MarkerBigEndian, []byte("deadbeef")), reply)
}

func TestHandlerMalformedFrame(t *testing.T) {
	h := NewHandler(newFakeProgram(), func() string { return "" }, func() uint32 { return 0 })
	reply := h.Handle([]byte{})
	assert.Equal(t, []byte{StatusOutOfBounds}, reply)
}
