package session

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Reaper periodically drops sessions that have been idle past a
// threshold. This is a supplemented feature (SPEC_FULL.md §5): the
// original has no cross-restart persistence and relies on process
// lifetime to bound memory, but a long-lived Go process benefits from
// reclaiming abandoned sessions the way the teacher's
// internal/sessions.SessionExpiry does for channel-scoped resets.
type Reaper struct {
	registry *Registry
	idleFor  time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewReaper builds a Reaper that, once Start is called, drops any
// session idle for longer than idleFor on the given cron schedule (e.g.
// "@every 5m").
func NewReaper(registry *Registry, idleFor time.Duration, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{registry: registry, idleFor: idleFor, logger: logger, cron: cron.New()}
}

// Start schedules the reap sweep and begins running it in the
// background. schedule is any robfig/cron/v3 spec, e.g. "@every 5m".
func (r *Reaper) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, r.sweep)
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for any in-flight sweep to finish.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reaper) sweep() {
	cutoff := time.Now().Add(-r.idleFor)
	idle := r.registry.IdleSince(cutoff)
	for _, id := range idle {
		r.logger.Info("session: reaping idle session", "session_id", id, "idle_for", r.idleFor)
		r.registry.Drop(id)
	}
}
