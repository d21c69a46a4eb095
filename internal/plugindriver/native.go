package plugindriver

import (
	"github.com/ebitengine/purego"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeargs"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
)

// nativeBinding holds a NATIVE plugin's resolved symbol set. Only init is
// required; the rest are left nil when the library does not export them,
// and the driver's fan-out simply skips a nil hook.
type nativeBinding struct {
	handle uintptr
	path   string

	rawInit func(args uintptr) int32

	startLoop  func()
	stopLoop   func()
	cycleStart func()
	cycleEnd   func()
	cleanup    func()

	pinned *cRuntimeArgs
}

// openNative opens path and resolves its NATIVE plugin symbol set.
// init is required; absence is a PluginError of kind MissingInit. The optional
// hooks are resolved best-effort and left nil if missing.
func openNative(path string) (*nativeBinding, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, runtimeerrors.NewPluginError(path, runtimeerrors.ErrOpenFailed, err.Error())
	}

	nb := &nativeBinding{handle: handle, path: path}

	if _, err := purego.Dlsym(handle, "init"); err != nil {
		purego.Dlclose(handle)
		return nil, runtimeerrors.NewPluginError(path, runtimeerrors.ErrMissingInit, "init")
	}
	purego.RegisterLibFunc(&nb.rawInit, handle, "init")

	registerOptional(handle, "start_loop", &nb.startLoop)
	registerOptional(handle, "stop_loop", &nb.stopLoop)
	registerOptional(handle, "cycle_start", &nb.cycleStart)
	registerOptional(handle, "cycle_end", &nb.cycleEnd)
	registerOptional(handle, "cleanup", &nb.cleanup)

	return nb, nil
}

func registerOptional(handle uintptr, name string, fptr *func()) {
	if _, err := purego.Dlsym(handle, name); err != nil {
		return
	}
	purego.RegisterLibFunc(fptr, handle, name)
}

// init invokes the plugin's init(runtime_args) → int entry point. A
// non-zero return means the plugin is not usable.
func (nb *nativeBinding) init(args *runtimeargs.Args) error {
	cArgs := marshalArgs(args)
	nb.pinned = cArgs // keep the marshaled struct (and its callback trampolines) alive for the instance's lifetime
	if rc := nb.rawInit(cArgs.addr()); rc != 0 {
		return runtimeerrors.NewPluginError(nb.path, runtimeerrors.ErrInitFailed, "non-zero return from init")
	}
	return nil
}

func (nb *nativeBinding) close() error {
	return purego.Dlclose(nb.handle)
}
