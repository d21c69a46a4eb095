//go:build !linux

package scancycle

import "github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"

// applyRealtimePosture is a no-op outside Linux: SCHED_FIFO and mlockall
// have no portable equivalent exposed by golang.org/x/sys/unix on other
// platforms, and the scheduler is required to continue without them.
func applyRealtimePosture() {
	logger.ScanCycle().Debug().Msg("real-time scheduling posture not available on this platform")
}
