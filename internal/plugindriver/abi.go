package plugindriver

import (
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeargs"
)

// cRuntimeArgs mirrors plugin_runtime_args_t's field order exactly, so a
// NATIVE plugin reading it by fixed offset sees the layout it expects:
// thirteen matrix bases, lock take/give callbacks, the image-lock pointer,
// the config path, the capacity constants, and four log callbacks.
type cRuntimeArgs struct {
	matrixBases [13]uintptr

	lockTake uintptr
	lockGive uintptr

	// imageLock is left null: the take/give callbacks ignore their
	// argument and always act on the shared image-table lock.
	imageLock uintptr

	configPath [256]byte

	capacity    int32
	bitsPerCell int32

	logInfo  uintptr
	logDebug uintptr
	logWarn  uintptr
	logError uintptr
}

func (c *cRuntimeArgs) addr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// marshalArgs converts a runtimeargs.Args into the fixed C layout,
// wrapping its Go lock and log callbacks as C-callable function pointers
// via purego.NewCallback.
func marshalArgs(args *runtimeargs.Args) *cRuntimeArgs {
	c := &cRuntimeArgs{
		matrixBases: args.MatrixBases,
		capacity:    int32(args.Capacity),
		bitsPerCell: int32(args.BitsPerCell),
	}
	copy(c.configPath[:255], args.ConfigPath)

	c.lockTake = purego.NewCallback(func() int32 {
		if err := args.LockTake(); err != nil {
			return 1
		}
		return 0
	})
	c.lockGive = purego.NewCallback(func() int32 {
		if err := args.LockGive(); err != nil {
			return 1
		}
		return 0
	})

	c.logInfo = wrapLog(args.Info)
	c.logDebug = wrapLog(args.Debug)
	c.logWarn = wrapLog(args.Warn)
	c.logError = wrapLog(args.Error)

	return c
}

// wrapLog adapts a Go LogFunc into a C void(*)(const char*) callback. The
// ABI declares the log callbacks as printf-style varargs; purego callbacks
// cannot be variadic, so the runtime only forwards the already-formatted
// message a plugin passes as its first argument.
func wrapLog(fn runtimeargs.LogFunc) uintptr {
	if fn == nil {
		return 0
	}
	return purego.NewCallback(func(msg *byte) {
		fn(cStringFromPtr(msg))
	})
}

func cStringFromPtr(p *byte) string {
	if p == nil {
		return ""
	}
	addr := uintptr(unsafe.Pointer(p))
	var b []byte
	for i := uintptr(0); ; i++ {
		c := *(*byte)(unsafe.Pointer(addr + i))
		if c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}
