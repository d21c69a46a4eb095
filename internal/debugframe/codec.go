// Package debugframe implements the debug-frame wire protocol: a
// big-endian, function-code-framed request/response protocol for
// inspecting and forcing program artifact variables, capped at 4096
// bytes per frame.
package debugframe

import (
	"encoding/binary"
	"errors"
)

// MaxFrameSize is the hard cap on any debug frame, request or reply.
const MaxFrameSize = 4096

// Function codes.
const (
	CodeInfo         byte = 0x41
	CodeSetTrace     byte = 0x42
	CodeGetTrace     byte = 0x43
	CodeGetTraceList byte = 0x44
	CodeGetMD5       byte = 0x45
)

// Status bytes used in SET_TRACE and GET_TRACE replies.
const (
	StatusOK          byte = 0x7E
	StatusOutOfBounds byte = 0x81
	StatusOutOfMemory byte = 0x82
)

// Endianness markers for GET_MD5 requests.
const (
	MarkerBigEndian    uint16 = 0xDEAD
	MarkerLittleEndian uint16 = 0xADDE
)

var errFrameTooShort = errors.New("debug frame too short")
var errUnknownCode = errors.New("unknown debug frame function code")

// Request is a parsed incoming debug frame.
type Request struct {
	Code byte

	// SET_TRACE
	TraceIdx    uint16
	TraceForced bool
	TraceVal    uintptr

	// GET_TRACE
	StartIdx uint16
	EndIdx   uint16

	// GET_TRACE_LIST
	Indices []uint16

	// GET_MD5
	Marker uint16
}

// ParseRequest decodes a raw debug frame into a Request.
func ParseRequest(data []byte) (Request, error) {
	if len(data) < 1 {
		return Request{}, errFrameTooShort
	}
	req := Request{Code: data[0]}
	body := data[1:]

	switch req.Code {
	case CodeInfo:
		return req, nil

	case CodeSetTrace:
		if len(body) < 7 {
			return Request{}, errFrameTooShort
		}
		req.TraceIdx = binary.BigEndian.Uint16(body[0:2])
		req.TraceForced = body[2] != 0
		req.TraceVal = uintptr(binary.BigEndian.Uint32(body[3:7]))
		return req, nil

	case CodeGetTrace:
		if len(body) < 4 {
			return Request{}, errFrameTooShort
		}
		req.StartIdx = binary.BigEndian.Uint16(body[0:2])
		req.EndIdx = binary.BigEndian.Uint16(body[2:4])
		return req, nil

	case CodeGetTraceList:
		if len(body) < 2 {
			return Request{}, errFrameTooShort
		}
		count := binary.BigEndian.Uint16(body[0:2])
		need := 2 + int(count)*2
		if len(body) < need {
			return Request{}, errFrameTooShort
		}
		req.Indices = make([]uint16, count)
		for i := 0; i < int(count); i++ {
			req.Indices[i] = binary.BigEndian.Uint16(body[2+i*2 : 4+i*2])
		}
		return req, nil

	case CodeGetMD5:
		if len(body) < 2 {
			return Request{}, errFrameTooShort
		}
		req.Marker = binary.BigEndian.Uint16(body[0:2])
		return req, nil

	default:
		return Request{}, errUnknownCode
	}
}

// BuildInfoReply encodes an INFO reply.
func BuildInfoReply(varCount uint16) []byte {
	buf := make([]byte, 3)
	buf[0] = CodeInfo
	binary.BigEndian.PutUint16(buf[1:3], varCount)
	return buf
}

// BuildSetTraceReply encodes a SET_TRACE reply.
func BuildSetTraceReply(status byte) []byte {
	return []byte{CodeSetTrace, status}
}

// BuildTraceReply encodes a GET_TRACE or GET_TRACE_LIST reply. payload is
// truncated if it would push the frame past MaxFrameSize.
func BuildTraceReply(lastIdx uint16, tick uint32, payload []byte) []byte {
	const headerLen = 1 + 1 + 2 + 4 + 2 // code, status, last_idx, tick, payload_len
	maxPayload := MaxFrameSize - headerLen
	if len(payload) > maxPayload {
		payload = payload[:maxPayload]
	}

	buf := make([]byte, headerLen+len(payload))
	buf[0] = CodeGetTrace
	buf[1] = StatusOK
	binary.BigEndian.PutUint16(buf[2:4], lastIdx)
	binary.BigEndian.PutUint32(buf[4:8], tick)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(payload)))
	copy(buf[10:], payload)
	return buf
}

// BuildMD5Reply encodes a GET_MD5 reply. If marker requests little-endian
// framing, the md5 bytes are reversed before encoding.
func BuildMD5Reply(marker uint16, md5 []byte) []byte {
	out := make([]byte, len(md5))
	copy(out, md5)
	if marker == MarkerLittleEndian {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	buf := make([]byte, 2+len(out))
	buf[0] = CodeGetMD5
	buf[1] = StatusOK
	copy(buf[2:], out)
	return buf
}
