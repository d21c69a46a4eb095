// Package artifact loads a program artifact: a dynamically loadable
// library exporting the PLC runtime's C-ABI symbol set. Loading uses
// ebitengine/purego so the runtime never needs cgo to open libplc_*.so
// files or bind their C-calling-convention functions.
package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
)

// requiredSymbols is the full set that must resolve for an artifact to be
// considered loadable. Absence of any of these is LoadError::MissingSymbol.
var requiredSymbols = []string{
	"config_init__",
	"config_run__",
	"glueVars",
	"updateTime",
	"setBufferPointers",
	"common_ticktime__",
	"plc_program_md5",
	"get_var_count",
	"get_var_size",
	"get_var_addr",
	"set_trace",
	"set_endianness",
}

// Artifact is a loaded program artifact, owning the open library handle
// and its bound symbols.
type Artifact struct {
	handle uintptr
	path   string

	configInit        func()
	configRun         func(tick uint64)
	glueVars          func()
	updateTime        func()
	setBufferPointers func(b0, b1, b2, b3, b4, b5, b6, b7, b8, b9, b10, b11, b12 uintptr)

	getVarCount   func() int32
	getVarSize    func(idx int32) int32
	getVarAddr    func(idx int32) uintptr
	setTrace      func(idx int32, forced int32, val uintptr)
	setEndianness func(v int32)

	tickTimeAddr uintptr
	md5Addr      uintptr
}

// Discover implements the directory-scan policy: if path is a directory,
// the first entry matching libplc_* with a loadable-library suffix is
// chosen; otherwise path itself is returned unchanged. NotFound is
// returned when path is a directory with no matching entry.
func Discover(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", runtimeerrors.NewLoadError(path, runtimeerrors.ErrNotFound, err.Error())
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", runtimeerrors.NewLoadError(path, runtimeerrors.ErrNotFound, err.Error())
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "libplc_") {
			continue
		}
		if strings.HasSuffix(name, ".so") || strings.HasSuffix(name, ".dylib") || strings.HasSuffix(name, ".dll") {
			return filepath.Join(path, name), nil
		}
	}
	return "", runtimeerrors.NewLoadError(path, runtimeerrors.ErrNotFound, "no libplc_* entry with a loadable-library suffix")
}

// Open opens the artifact at path with immediate symbol resolution,
// resolves the required symbol set, and invokes setBufferPointers,
// config_init__, and glueVars in that order.
func Open(path string, matrixBases [13]uintptr) (*Artifact, error) {
	log := logger.Artifact()

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, runtimeerrors.NewLoadError(path, runtimeerrors.ErrOpenFailed, err.Error())
	}

	a := &Artifact{handle: handle, path: path}

	for _, sym := range requiredSymbols {
		if _, err := purego.Dlsym(handle, sym); err != nil {
			purego.Dlclose(handle)
			return nil, runtimeerrors.NewLoadError(path, runtimeerrors.ErrMissingSymbol, sym)
		}
	}

	purego.RegisterLibFunc(&a.configInit, handle, "config_init__")
	purego.RegisterLibFunc(&a.configRun, handle, "config_run__")
	purego.RegisterLibFunc(&a.glueVars, handle, "glueVars")
	purego.RegisterLibFunc(&a.updateTime, handle, "updateTime")
	purego.RegisterLibFunc(&a.setBufferPointers, handle, "setBufferPointers")
	purego.RegisterLibFunc(&a.getVarCount, handle, "get_var_count")
	purego.RegisterLibFunc(&a.getVarSize, handle, "get_var_size")
	purego.RegisterLibFunc(&a.getVarAddr, handle, "get_var_addr")
	purego.RegisterLibFunc(&a.setTrace, handle, "set_trace")
	purego.RegisterLibFunc(&a.setEndianness, handle, "set_endianness")

	a.tickTimeAddr, _ = purego.Dlsym(handle, "common_ticktime__")
	a.md5Addr, _ = purego.Dlsym(handle, "plc_program_md5")

	b := matrixBases
	a.setBufferPointers(b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8], b[9], b[10], b[11], b[12])
	a.configInit()
	a.glueVars()

	log.Info().Str("path", path).Str("md5", a.ProgramMD5()).Uint64("tick_nanos", a.TickTime()).Msg("program artifact loaded")

	return a, nil
}

// TickTime reads common_ticktime__, the artifact-declared scan period in
// nanoseconds, directly from the symbol's resolved address.
func (a *Artifact) TickTime() uint64 {
	return *(*uint64)(unsafe.Pointer(a.tickTimeAddr))
}

// ProgramMD5 reads plc_program_md5, a NUL-terminated C string, directly
// from the symbol's resolved address.
func (a *Artifact) ProgramMD5() string {
	return cString(a.md5Addr)
}

// Run invokes config_run__(tick) followed by updateTime(), the two calls
// the scan cycle makes every iteration.
func (a *Artifact) Run(tick uint64) {
	a.configRun(tick)
	a.updateTime()
}

// Close releases the library handle. Callers must have already stopped
// the scan thread and cleared the image table.
func (a *Artifact) Close() error {
	return purego.Dlclose(a.handle)
}

// Path returns the filesystem path this artifact was opened from.
func (a *Artifact) Path() string { return a.path }

// GetVarCount satisfies debugframe.VariableAccess, delegating to the
// artifact's get_var_count symbol.
func (a *Artifact) GetVarCount() int32 { return a.getVarCount() }

// GetVarSize satisfies debugframe.VariableAccess, delegating to the
// artifact's get_var_size symbol.
func (a *Artifact) GetVarSize(idx int32) int32 { return a.getVarSize(idx) }

// GetVarAddr satisfies debugframe.VariableAccess, delegating to the
// artifact's get_var_addr symbol.
func (a *Artifact) GetVarAddr(idx int32) uintptr { return a.getVarAddr(idx) }

// SetTrace satisfies debugframe.VariableAccess, delegating to the
// artifact's set_trace symbol.
func (a *Artifact) SetTrace(idx int32, forced int32, val uintptr) { a.setTrace(idx, forced, val) }

// SetEndianness satisfies debugframe.VariableAccess, delegating to the
// artifact's set_endianness symbol.
func (a *Artifact) SetEndianness(v int32) { a.setEndianness(v) }

func cString(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	var b strings.Builder
	for i := uintptr(0); ; i++ {
		c := *(*byte)(unsafe.Pointer(addr + i))
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
