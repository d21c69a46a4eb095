// Package runtimeargs builds the opaque handle passed to every plugin's
// init: a bundle of references to the image-table matrices, the
// image-table lock, and logging callbacks. Args is a Go value; NATIVE
// plugins never see it directly but receive a fixed-offset C struct that
// the plugin driver marshals from it.
package runtimeargs

import "github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/imagetable"

// LogFunc matches the plugin ABI's four log callback signatures.
type LogFunc func(format string, args ...any)

// Locker is the subset of imagetable.Table's API a runtime-args handle
// needs to expose as take/give function values.
type Locker interface {
	Lock()
	Unlock()
}

// Args is the handle bundle. It is built fresh for every plugin load (not
// cached or shared across plugins), matching the instruction that the
// handle's lifetime is exactly the plugin instance's lifetime.
type Args struct {
	// MatrixBases holds the thirteen image-table matrix bases in ABI
	// order, the same order setBufferPointers uses.
	MatrixBases [13]uintptr

	LockTake func() error
	LockGive func() error

	ConfigPath string

	Capacity    int
	BitsPerCell int

	Info, Debug, Warn, Error LogFunc
}

// Build constructs a runtime-args handle for a single plugin instance.
func Build(table *imagetable.Table, configPath string, info, debug, warn, errf LogFunc) *Args {
	return &Args{
		MatrixBases: table.Bases(),
		LockTake: func() error {
			table.Lock()
			return nil
		},
		LockGive: func() error {
			table.Unlock()
			return nil
		},
		ConfigPath:  configPath,
		Capacity:    imagetable.Capacity,
		BitsPerCell: imagetable.BitsPerCell,
		Info:        info,
		Debug:       debug,
		Warn:        warn,
		Error:       errf,
	}
}
