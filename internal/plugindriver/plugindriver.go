// Package plugindriver loads, supervises, and invokes in-process plugins
// of both kinds the ABI supports: NATIVE (a dynamically loadable library,
// bound with ebitengine/purego) and SCRIPT (a module in an embedded Lua
// environment, provided by github.com/yuin/gopher-lua). NATIVE plugins
// may run synchronously on the scan thread via cycle_start/cycle_end.
// SCRIPT plugins share one Lua state and get no goroutine of their own:
// their init, start_loop, stop_loop and cleanup run on the goroutine that
// calls Init/Start/Stop/Destroy, one at a time under the driver's mutex.
package plugindriver

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/descriptor"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/imagetable"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeargs"
)

// MaxPlugins is the fixed capacity of the plugin instance array, matching
// the original's MAX_PLUGINS.
const MaxPlugins = 16

// instance is one loaded plugin: its descriptor, resolved symbol set, and
// running state.
type instance struct {
	desc descriptor.Descriptor

	native *nativeBinding
	script *scriptBinding

	args    *runtimeargs.Args
	running bool
	initOK  bool
}

// Driver supervises up to MaxPlugins instances against a shared image
// table.
type Driver struct {
	mu        sync.Mutex
	table     *imagetable.Table
	instances [MaxPlugins]*instance
	count     int

	lua *lua.LState
}

// New returns a driver bound to table. The Lua state is created lazily,
// the first time a SCRIPT descriptor is loaded.
func New(table *imagetable.Table) *Driver {
	return &Driver{table: table}
}

// LoadConfig parses the descriptor file at path and opens every enabled
// descriptor's symbol set. A descriptor whose required symbols cannot be
// resolved is recorded with initOK=false and skipped by Init/Start/cycle
// fan-out, but does not abort loading the rest.
func (d *Driver) LoadConfig(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logger.PluginDriver()

	descs, err := descriptor.ParseFile(path)
	if err != nil {
		return err
	}

	d.instances = [MaxPlugins]*instance{}
	d.count = 0

	for _, desc := range descs {
		if !desc.Enabled {
			log.Debug().Str("plugin", desc.Name).Msg("descriptor disabled, skipping")
			continue
		}

		inst := &instance{desc: desc}

		switch desc.Kind {
		case descriptor.Native:
			nb, err := openNative(desc.Path)
			if err != nil {
				log.Error().Err(err).Str("plugin", desc.Name).Msg("native plugin load failed")
				inst.initOK = false
			} else {
				inst.native = nb
				inst.initOK = true
			}
		case descriptor.Script:
			if d.lua == nil {
				d.lua = lua.NewState()
			}
			sb, err := loadScript(d.lua, desc.Path, desc.ScriptEnvPath)
			if err != nil {
				log.Error().Err(err).Str("plugin", desc.Name).Msg("script plugin load failed")
				inst.initOK = false
			} else {
				inst.script = sb
				inst.initOK = true
			}
		}

		d.instances[d.count] = inst
		d.count++
	}

	return nil
}

// Init builds a runtime-args handle for and calls init on every
// successfully loaded plugin. A plugin whose init fails (missing
// required entry point, or a non-zero NATIVE return) is marked not
// usable and excluded from Start.
func (d *Driver) Init() {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logger.PluginDriver()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		if !inst.initOK {
			continue
		}

		info, debug, warn, errf := logger.PluginCallbacks(inst.desc.Name)
		inst.args = runtimeargs.Build(d.table, inst.desc.ConfigPath, info, debug, warn, errf)

		var err error
		switch inst.desc.Kind {
		case descriptor.Native:
			err = inst.native.init(inst.args)
		case descriptor.Script:
			err = inst.script.init(inst.args)
		}

		if err != nil {
			log.Error().Err(err).Str("plugin", inst.desc.Name).Msg("plugin init failed")
			inst.initOK = false
			continue
		}
		log.Info().Str("plugin", inst.desc.Name).Str("kind", inst.desc.Kind.String()).Msg("plugin initialized")
	}
}

// Start calls start_loop on every plugin whose init succeeded and marks
// it running.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		if !inst.initOK {
			continue
		}
		switch inst.desc.Kind {
		case descriptor.Native:
			if inst.native.startLoop != nil {
				inst.native.startLoop()
			}
		case descriptor.Script:
			inst.script.startLoop()
		}
		inst.running = true
	}
}

// CycleStart fans out to every enabled, running NATIVE plugin's
// cycle_start hook. Called from the scan thread with the image-table
// lock held.
func (d *Driver) CycleStart() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		if inst.native != nil && inst.running && inst.native.cycleStart != nil {
			inst.native.cycleStart()
		}
	}
}

// CycleEnd fans out to every enabled, running NATIVE plugin's cycle_end
// hook.
func (d *Driver) CycleEnd() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		if inst.native != nil && inst.running && inst.native.cycleEnd != nil {
			inst.native.cycleEnd()
		}
	}
}

// Stop calls stop_loop on every running plugin and marks it not running.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		if !inst.running {
			continue
		}
		switch inst.desc.Kind {
		case descriptor.Native:
			if inst.native.stopLoop != nil {
				inst.native.stopLoop()
			}
		case descriptor.Script:
			inst.script.stopLoop()
		}
		inst.running = false
	}
}

// Restart stops and cleans up every instance, then reloads the
// descriptor file at path and re-initializes and starts.
func (d *Driver) Restart(path string) error {
	d.Stop()
	d.cleanupAll()
	if err := d.LoadConfig(path); err != nil {
		return err
	}
	d.Init()
	d.Start()
	return nil
}

// Destroy stops, cleans up, and closes every plugin's library handle,
// then tears down the embedded Lua environment if it was created.
func (d *Driver) Destroy() {
	d.Stop()
	d.cleanupAll()

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		if inst.native != nil {
			inst.native.close()
		}
	}
	if d.lua != nil {
		d.lua.Close()
		d.lua = nil
	}
	d.instances = [MaxPlugins]*instance{}
	d.count = 0
}

func (d *Driver) cleanupAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.count; i++ {
		inst := d.instances[i]
		switch {
		case inst.native != nil && inst.native.cleanup != nil:
			inst.native.cleanup()
		case inst.script != nil:
			inst.script.cleanup()
		}
	}
}

// Count reports how many descriptors were loaded by the last LoadConfig.
func (d *Driver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

