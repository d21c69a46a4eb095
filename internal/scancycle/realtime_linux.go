//go:build linux

package scancycle

import (
	"golang.org/x/sys/unix"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

// realtimePriority is the fixed-priority value the scan thread requests
// from SCHED_FIFO, per SPEC_FULL.md's real-time posture.
const realtimePriority = 20

// applyRealtimePosture attempts to move the calling OS thread into
// SCHED_FIFO at realtimePriority and lock the process's memory pages so
// the hot loop never takes a page fault. Both operations typically
// require CAP_SYS_NICE/CAP_IPC_LOCK; failure is logged and swallowed,
// never fatal, so the scheduler runs at default priority on hosts
// without the capability.
func applyRealtimePosture() {
	log := logger.ScanCycle()

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		log.Warn().Err(err).Msg("mlockall failed, continuing with pageable memory")
	}

	sp := &unix.SchedParam{Priority: realtimePriority}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, sp); err != nil {
		log.Warn().Err(err).Msg("SCHED_FIFO request failed, continuing at default scheduling class")
		return
	}
	log.Info().Int("priority", realtimePriority).Msg("scan thread running under SCHED_FIFO")
}
