// Package eventbus publishes state-transition and plugin-lifecycle
// events over NATS for external collaborators (an HMI, a supervisory
// process, a fleet controller) that want to react to the runtime without
// polling the command socket.
package eventbus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

// Subject names, following the domain.action convention.
const (
	SubjectStateTransition = "plcruntime.state.transition"
	SubjectPluginLoaded    = "plcruntime.plugin.loaded"
	SubjectPluginUnloaded  = "plcruntime.plugin.unloaded"
	SubjectOverrun         = "plcruntime.scancycle.overrun"
)

// StateTransitionEvent is published whenever the state machine accepts a
// transition.
type StateTransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// PluginEvent is published when a plugin instance is loaded or unloaded.
type PluginEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Plugin    string    `json:"plugin"`
	Kind      string    `json:"kind"`
}

// OverrunEvent is published when the scan cycle misses a deadline.
type OverrunEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	ExpectedNanos int64     `json:"expected_nanos"`
	ActualNanos   int64     `json:"actual_nanos"`
}

// Bus publishes events to a NATS server. A Bus without a connection
// (returned by Connect when url is empty) or a nil *Bus makes every
// Publish* call a no-op, so
// callers never need to branch on whether the event bus is enabled.
type Bus struct {
	conn *nats.Conn
}

// Connect dials url and returns a Bus. If url is empty, the event bus is
// disabled and every publish becomes a no-op; this keeps the feature
// entirely optional with no special-casing at call sites.
func Connect(url string) (*Bus, error) {
	log := logger.EventBus()

	if url == "" {
		log.Info().Msg("event bus disabled: no NATS URL configured")
		return &Bus{}, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("plcruntime"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("event bus disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("event bus reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", url).Msg("event bus connected")
	return &Bus{conn: conn}, nil
}

func (b *Bus) publish(subject string, payload any) {
	if b == nil || b.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.EventBus().Warn().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		logger.EventBus().Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

// PublishStateTransition emits a state-transition event.
func (b *Bus) PublishStateTransition(from, to string) {
	b.publish(SubjectStateTransition, StateTransitionEvent{Timestamp: time.Now(), From: from, To: to})
}

// PublishPluginLoaded emits a plugin-loaded event.
func (b *Bus) PublishPluginLoaded(plugin, kind string) {
	b.publish(SubjectPluginLoaded, PluginEvent{Timestamp: time.Now(), Plugin: plugin, Kind: kind})
}

// PublishPluginUnloaded emits a plugin-unloaded event.
func (b *Bus) PublishPluginUnloaded(plugin, kind string) {
	b.publish(SubjectPluginUnloaded, PluginEvent{Timestamp: time.Now(), Plugin: plugin, Kind: kind})
}

// PublishOverrun emits a scan-cycle overrun event.
func (b *Bus) PublishOverrun(expectedNanos, actualNanos int64) {
	b.publish(SubjectOverrun, OverrunEvent{Timestamp: time.Now(), ExpectedNanos: expectedNanos, ActualNanos: actualNanos})
}

// Close releases the NATS connection, if one was opened.
func (b *Bus) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}
