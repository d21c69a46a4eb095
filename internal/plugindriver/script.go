package plugindriver

import (
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeargs"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
)

// scriptBinding holds a SCRIPT plugin's module table and the handful of
// named functions it may define, resolved against the shared Lua state.
// SCRIPT plugins never get cycle_start/cycle_end: they cannot meet a
// real-time deadline and must synchronize with the image table through
// the runtime-args lock take/give functions instead.
type scriptBinding struct {
	L      *lua.LState
	module string
	path   string

	initFn      lua.LValue
	startLoopFn lua.LValue
	stopLoopFn  lua.LValue
	cleanupFn   lua.LValue
}

// loadScript runs the script file at path in L's global environment and
// resolves its named entry points. If envPath is set, its directory is
// also added as a package search path before loading.
func loadScript(L *lua.LState, path, envPath string) (*scriptBinding, error) {
	if envPath != "" {
		prependPackagePath(L, filepath.Dir(envPath))
	}
	prependPackagePath(L, filepath.Dir(path))

	if err := L.DoFile(path); err != nil {
		return nil, runtimeerrors.NewPluginError(path, runtimeerrors.ErrLoadFailed, err.Error())
	}

	sb := &scriptBinding{L: L, module: filepath.Base(path), path: path}
	sb.initFn = L.GetGlobal("init")
	if sb.initFn == lua.LNil {
		return nil, runtimeerrors.NewPluginError(path, runtimeerrors.ErrMissingInit, "init")
	}

	sb.startLoopFn = optionalGlobal(L, "start_loop")
	sb.stopLoopFn = optionalGlobal(L, "stop_loop")
	sb.cleanupFn = optionalGlobal(L, "cleanup")

	return sb, nil
}

func optionalGlobal(L *lua.LState, name string) lua.LValue {
	v := L.GetGlobal(name)
	if v == lua.LNil {
		return nil
	}
	return v
}

func prependPackagePath(L *lua.LState, dir string) {
	pkg := L.GetGlobal("package")
	tbl, ok := pkg.(*lua.LTable)
	if !ok {
		return
	}
	current := lua.LVAsString(tbl.RawGetString("path"))
	tbl.RawSetString("path", lua.LString(filepath.Join(dir, "?.lua")+";"+current))
}

// init calls the script's init(runtime_args) function. The runtime-args
// handle is passed as opaque Lua userdata; no metatable or accessor
// functions are registered for it, so Lua code cannot read its fields.
func (sb *scriptBinding) init(args *runtimeargs.Args) error {
	ud := sb.L.NewUserData()
	ud.Value = args

	if err := sb.L.CallByParam(lua.P{Fn: sb.initFn, NRet: 0, Protect: true}, ud); err != nil {
		return runtimeerrors.NewPluginError(sb.path, runtimeerrors.ErrInitFailed, err.Error())
	}
	return nil
}

func (sb *scriptBinding) startLoop() {
	if sb.startLoopFn == nil {
		return
	}
	_ = sb.L.CallByParam(lua.P{Fn: sb.startLoopFn, NRet: 0, Protect: true})
}

func (sb *scriptBinding) stopLoop() {
	if sb.stopLoopFn == nil {
		return
	}
	_ = sb.L.CallByParam(lua.P{Fn: sb.stopLoopFn, NRet: 0, Protect: true})
}

func (sb *scriptBinding) cleanup() {
	if sb.cleanupFn == nil {
		return
	}
	_ = sb.L.CallByParam(lua.P{Fn: sb.cleanupFn, NRet: 0, Protect: true})
}
