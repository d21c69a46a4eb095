package debugframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestInfo(t *testing.T) {
	req, err := ParseRequest([]byte{CodeInfo})
	require.NoError(t, err)
	assert.Equal(t, CodeInfo, req.Code)
}

func TestParseRequestSetTrace(t *testing.T) {
	data := []byte{CodeSetTrace, 0x00, 0x05, 0x01, 0x00, 0x00, 0x00, 0x2A}
	req, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), req.TraceIdx)
	assert.True(t, req.TraceForced)
	assert.Equal(t, uintptr(0x2A), req.TraceVal)
}

func TestParseRequestGetTrace(t *testing.T) {
	data := []byte{CodeGetTrace, 0x00, 0x01, 0x00, 0x03}
	req, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), req.StartIdx)
	assert.Equal(t, uint16(3), req.EndIdx)
}

func TestParseRequestGetTraceList(t *testing.T) {
	data := []byte{CodeGetTraceList, 0x00, 0x02, 0x00, 0x01, 0x00, 0x02}
	req, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, req.Indices)
}

func TestParseRequestGetTraceListTruncatedIsError(t *testing.T) {
	data := []byte{CodeGetTraceList, 0x00, 0x02, 0x00, 0x01}
	_, err := ParseRequest(data)
	assert.Error(t, err)
}

func TestParseRequestGetMD5(t *testing.T) {
	data := []byte{CodeGetMD5, 0xDE, 0xAD}
	req, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, MarkerBigEndian, req.Marker)
}

func TestParseRequestUnknownCode(t *testing.T) {
	_, err := ParseRequest([]byte{0xFF})
	assert.Error(t, err)
}

func TestBuildInfoReply(t *testing.T) {
	buf := BuildInfoReply(300)
	assert.Equal(t, []byte{CodeInfo, 0x01, 0x2C}, buf)
}

func TestBuildTraceReplyCapsAt4096(t *testing.T) {
	payload := make([]byte, 8192)
	buf := BuildTraceReply(10, 42, payload)
	assert.LessOrEqual(t, len(buf), MaxFrameSize)
}

func TestBuildMD5ReplyLittleEndianReversesBytes(t *testing.T) {
	md5 := []byte{0x01, 0x02, 0x03, 0x04}
	buf := BuildMD5Reply(MarkerLittleEndian, md5)
	assert.Equal(t, []byte{CodeGetMD5, StatusOK, 0x04, 0x03, 0x02, 0x01}, buf)
}
