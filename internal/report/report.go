// Package report runs a periodic statistics-summary logger on a cron
// schedule, distinct from the hard-real-time scan loop: it only ever
// reads a snapshot, never participates in the scan cycle's timing.
package report

import (
	"github.com/robfig/cron/v3"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scancycle"
)

// Reporter logs a scancycle.Stats snapshot on a cron schedule.
type Reporter struct {
	cron    *cron.Cron
	tracker *scancycle.Tracker
	entryID cron.EntryID
}

// New builds a reporter over tracker. spec is a standard cron expression
// or one of robfig/cron's "@every" shorthands (e.g. "@every 1m").
func New(tracker *scancycle.Tracker, spec string) (*Reporter, error) {
	r := &Reporter{
		cron:    cron.New(),
		tracker: tracker,
	}

	id, err := r.cron.AddFunc(spec, r.logSnapshot)
	if err != nil {
		return nil, err
	}
	r.entryID = id
	return r, nil
}

func (r *Reporter) logSnapshot() {
	log := logger.Report()

	snap, ok := r.tracker.Snapshot()
	if !ok {
		log.Info().Msg("no completed scan cycles yet")
		return
	}

	log.Info().
		Int64("scan_count", snap.ScanCount).
		Int64("scan_time_avg_us", snap.ScanTimeAvgUs).
		Int64("cycle_time_avg_us", snap.CycleTimeAvgUs).
		Int64("cycle_latency_avg_us", snap.CycleLatencyAvgUs).
		Int64("overruns", snap.Overruns).
		Msg("scan cycle statistics summary")
}

// Start begins the cron schedule.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts the cron schedule and waits for any in-flight run to
// complete.
func (r *Reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
