// Command plcruntime is the PLC runtime process: it loads a program
// artifact, drives the scan cycle, supervises plugins, and exposes the
// command socket, debug-frame handler, and optional telemetry/event/report
// subsystems described in SPEC_FULL.md.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/commandsocket"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/config"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/eventbus"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/orchestrator"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/report"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/statemachine"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/telemetry"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/watchdog"
)

func main() {
	configPath := os.Getenv("PLC_CONFIG_FILE")

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	logger.Initialize(cfg.LogLevel, cfg.LogPretty)
	log := logger.GetLogger()

	log.Info().Str("artifact_path", cfg.ArtifactPath).Msg("starting plcruntime")

	bus, err := eventbus.Connect(cfg.NATSURL)
	if err != nil {
		log.Warn().Err(err).Msg("event bus connect failed, continuing without it")
	}
	defer bus.Close()

	opts := []orchestrator.Option{
		orchestrator.WithEventBus(bus),
		orchestrator.WithWatchdogInterval(cfg.WatchdogInterval),
	}
	if cfg.RedisAddr != "" {
		mirror := watchdog.NewRedisMirror(cfg.RedisAddr, cfg.RedisPassword, "plcruntime:heartbeat")
		opts = append(opts, orchestrator.WithHeartbeatMirror(mirror))
		defer mirror.Close()
	}

	rt := orchestrator.New(cfg.ArtifactPath, cfg.DescriptorPath, cfg.TickOverrideNanos, opts...)

	if cfg.ArtifactPath != "" {
		if err := rt.RequestStart(); err != nil {
			log.Error().Err(err).Msg("initial program artifact start failed, remaining stopped")
		}
	} else {
		log.Info().Msg("no artifact_path configured, waiting for START command")
	}

	stopCh := make(chan struct{})

	if cfg.ReportCron != "" {
		reporter, err := report.New(rt.Tracker(), cfg.ReportCron)
		if err != nil {
			log.Warn().Err(err).Msg("report scheduler did not start")
		} else {
			reporter.Start()
			defer reporter.Stop()
		}
	}

	var telemetrySrv *http.Server
	if cfg.TelemetryAddr != "" {
		hub := telemetry.NewHub()
		go hub.Run(stopCh)
		go telemetry.PublishSnapshot(hub, func() statemachine.State {
			return rt.StateMachine().GetState()
		}, rt.Tracker(), time.Second, stopCh)

		mux := http.NewServeMux()
		mux.Handle("/telemetry", telemetry.NewServer(hub))
		telemetrySrv = &http.Server{Addr: cfg.TelemetryAddr, Handler: mux}
		go func() {
			if err := telemetrySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("telemetry server stopped unexpectedly")
			}
		}()
	}

	cmdSrv := commandsocket.New(cfg.CommandSocketPath, rt, debugHandlerAdapter{rt}, cfg.CommandRateLimitPerSec, cfg.CommandRateLimitBurst)
	go func() {
		if err := cmdSrv.Serve(); err != nil {
			log.Warn().Err(err).Msg("command socket stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received")
	close(stopCh)
	cmdSrv.Close()
	if telemetrySrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetrySrv.Shutdown(ctx)
	}
	rt.Shutdown()
	log.Info().Msg("plcruntime stopped")
}

// debugHandlerAdapter satisfies commandsocket.DebugHandler, delegating to
// whatever debugframe.Handler is bound to the currently loaded program. A
// frame received while no program is loaded reports out-of-bounds.
type debugHandlerAdapter struct {
	rt *orchestrator.Runtime
}

func (d debugHandlerAdapter) Handle(data []byte) []byte {
	h := d.rt.DebugHandler()
	if h == nil {
		return []byte{0x81}
	}
	return h.Handle(data)
}
