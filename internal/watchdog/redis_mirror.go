package watchdog

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes the heartbeat timestamp to a Redis key so an
// external, multi-host watchdog can aggregate liveness across a cluster
// of runtime processes. Only the heartbeat value is written; no I/O
// state is persisted.
type RedisMirror struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisMirror constructs a mirror against addr, keyed by key (e.g.
// "plcruntime:heartbeat:<host>").
func NewRedisMirror(addr, password, key string) *RedisMirror {
	return &RedisMirror{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		key:    key,
		ttl:    5 * SampleInterval,
	}
}

// Publish writes the heartbeat timestamp with an expiry a few sample
// periods long, so a crashed process's key ages out on its own.
func (m *RedisMirror) Publish(heartbeatUnixNano int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return m.client.Set(ctx, m.key, strconv.FormatInt(heartbeatUnixNano, 10), m.ttl).Err()
}

// Close releases the underlying Redis client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
