package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global logger instance
var (
	Log zerolog.Logger
)

// Initialize sets up the global logger with configuration
func Initialize(level string, pretty bool) {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	// Set global logger
	Log = log.With().
		Str("service", "plcruntime").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return &Log
}

// ScanCycle creates a logger for the scan-cycle scheduler
func ScanCycle() *zerolog.Logger {
	l := Log.With().Str("component", "scancycle").Logger()
	return &l
}

// StateMachine creates a logger for the PLC state machine
func StateMachine() *zerolog.Logger {
	l := Log.With().Str("component", "statemachine").Logger()
	return &l
}

// ImageTables creates a logger for the image-table subsystem
func ImageTables() *zerolog.Logger {
	l := Log.With().Str("component", "imagetable").Logger()
	return &l
}

// Artifact creates a logger for the program artifact loader
func Artifact() *zerolog.Logger {
	l := Log.With().Str("component", "artifact").Logger()
	return &l
}

// PluginDriver creates a logger for the plugin driver
func PluginDriver() *zerolog.Logger {
	l := Log.With().Str("component", "plugindriver").Logger()
	return &l
}

// Watchdog creates a logger for the watchdog/heartbeat subsystem
func Watchdog() *zerolog.Logger {
	l := Log.With().Str("component", "watchdog").Logger()
	return &l
}

// CommandSocket creates a logger for the command-socket adapter
func CommandSocket() *zerolog.Logger {
	l := Log.With().Str("component", "commandsocket").Logger()
	return &l
}

// EventBus creates a logger for the state/plugin event publisher
func EventBus() *zerolog.Logger {
	l := Log.With().Str("component", "eventbus").Logger()
	return &l
}

// Telemetry creates a logger for the optional HMI telemetry broadcaster
func Telemetry() *zerolog.Logger {
	l := Log.With().Str("component", "telemetry").Logger()
	return &l
}

// Report creates a logger for the periodic statistics reporter
func Report() *zerolog.Logger {
	l := Log.With().Str("component", "report").Logger()
	return &l
}

// PluginCallbacks builds the four leveled log callbacks (info/debug/warn/error)
// handed to a plugin instance inside its runtime-args handle, scoped to that
// plugin's own name.
func PluginCallbacks(pluginName string) (info, debug, warn, errf func(string, ...any)) {
	l := Log.With().Str("component", "plugin").Str("plugin", pluginName).Logger()
	info = func(msg string, args ...any) { l.Info().Msgf(msg, args...) }
	debug = func(msg string, args ...any) { l.Debug().Msgf(msg, args...) }
	warn = func(msg string, args ...any) { l.Warn().Msgf(msg, args...) }
	errf = func(msg string, args ...any) { l.Error().Msgf(msg, args...) }
	return
}
