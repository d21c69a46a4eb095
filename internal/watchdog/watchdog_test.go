package watchdog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	mu        sync.Mutex
	published []int64
}

func (r *recordingMirror) Publish(ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, ts)
	return nil
}

func (r *recordingMirror) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

func TestWatchdogDoesNotTerminateWhileHeartbeatAdvances(t *testing.T) {
	var terminated bool
	var mu sync.Mutex

	w := New(
		func() bool { return true },
		func(reason string) {
			mu.Lock()
			terminated = true
			mu.Unlock()
		},
		nil,
	)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.Beat()
			}
		}
	}()
	defer close(stop)

	w.Beat()
	require.NoError(t, w.Start())
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, terminated)
}

func TestWatchdogPublishesToMirror(t *testing.T) {
	mirror := &recordingMirror{}
	w := New(func() bool { return false }, func(string) {}, mirror)
	w.Interval = 5 * time.Millisecond
	w.Beat()
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Eventually(t, func() bool { return mirror.count() > 0 }, time.Second, 10*time.Millisecond)
}

func TestWatchdogCannotRestartAfterStop(t *testing.T) {
	w := New(func() bool { return false }, func(string) {}, nil)
	require.NoError(t, w.Start())
	w.Stop()

	<-w.Done()
	err := w.Start()
	assert.Error(t, err)
}
