package debugframe

import (
	"github.com/google/uuid"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

// VariableAccess is the subset of a loaded artifact's debug accessors the
// handler needs. internal/artifact.Artifact satisfies this.
type VariableAccess interface {
	GetVarCount() int32
	GetVarSize(idx int32) int32
	GetVarAddr(idx int32) uintptr
	SetTrace(idx int32, forced int32, val uintptr)
	SetEndianness(v int32)
}

// Handler processes debug frames against a currently loaded artifact.
// It is the Go-side equivalent of process_debug_data.
type Handler struct {
	program VariableAccess
	md5     func() string
	tick    func() uint32
}

// NewHandler builds a handler over program, with md5 and tick supplying
// the current program MD5 and scan-cycle tick count for GET_TRACE/GET_MD5
// replies.
func NewHandler(program VariableAccess, md5 func() string, tick func() uint32) *Handler {
	return &Handler{program: program, md5: md5, tick: tick}
}

// Handle parses data as a debug frame, dispatches it, and returns the
// encoded reply. A correlation id is attached to the log line for every
// call so multi-frame exchanges can be traced.
func (h *Handler) Handle(data []byte) []byte {
	log := logger.GetLogger().With().Str("debug_frame_id", uuid.NewString()).Logger()

	req, err := ParseRequest(data)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse debug frame")
		return []byte{StatusOutOfBounds}
	}

	switch req.Code {
	case CodeInfo:
		count := h.program.GetVarCount()
		log.Debug().Int32("var_count", count).Msg("debug frame INFO")
		return BuildInfoReply(uint16(count))

	case CodeSetTrace:
		count := h.program.GetVarCount()
		if int32(req.TraceIdx) >= count {
			return BuildSetTraceReply(StatusOutOfBounds)
		}
		forced := int32(0)
		if req.TraceForced {
			forced = 1
		}
		h.program.SetTrace(int32(req.TraceIdx), forced, req.TraceVal)
		return BuildSetTraceReply(StatusOK)

	case CodeGetTrace:
		return h.handleGetTrace(req.StartIdx, req.EndIdx)

	case CodeGetTraceList:
		return h.handleGetTraceList(req.Indices)

	case CodeGetMD5:
		h.program.SetEndianness(endiannessFromMarker(req.Marker))
		return BuildMD5Reply(req.Marker, []byte(h.md5()))

	default:
		log.Warn().Uint8("code", req.Code).Msg("unhandled debug frame code")
		return []byte{StatusOutOfBounds}
	}
}

func (h *Handler) handleGetTrace(start, end uint16) []byte {
	count := h.program.GetVarCount()
	if int32(start) >= count || int32(end) >= count || end < start {
		return []byte{CodeGetTrace, StatusOutOfBounds}
	}

	var payload []byte
	for idx := start; idx <= end; idx++ {
		size := h.program.GetVarSize(int32(idx))
		addr := h.program.GetVarAddr(int32(idx))
		payload = append(payload, encodeVar(addr, size)...)
	}

	return BuildTraceReply(end, h.tick(), payload)
}

func (h *Handler) handleGetTraceList(indices []uint16) []byte {
	count := h.program.GetVarCount()
	var payload []byte
	var lastIdx uint16

	for _, idx := range indices {
		if int32(idx) >= count {
			return []byte{CodeGetTraceList, StatusOutOfBounds}
		}
		size := h.program.GetVarSize(int32(idx))
		addr := h.program.GetVarAddr(int32(idx))
		payload = append(payload, encodeVar(addr, size)...)
		lastIdx = idx
	}

	reply := BuildTraceReply(lastIdx, h.tick(), payload)
	reply[0] = CodeGetTraceList
	return reply
}

func endiannessFromMarker(marker uint16) int32 {
	if marker == MarkerLittleEndian {
		return 1
	}
	return 0
}

// encodeVar reads size bytes starting at addr. Reading foreign memory by
// raw address is inherent to the debug protocol's design: it inspects
// program-artifact variables the runtime does not itself own.
func encodeVar(addr uintptr, size int32) []byte {
	out := make([]byte, size)
	for i := int32(0); i < size; i++ {
		out[i] = *(*byte)(unsafePointerAdd(addr, uintptr(i)))
	}
	return out
}
