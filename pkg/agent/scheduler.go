package agent

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler drives periodic triggers using github.com/robfig/cron/v3, with
// one cron entry per agent with a periodic trigger configured.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler builds a scheduler; Start/Stop control the underlying cron
// runner's goroutine.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Start begins running scheduled entries.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any running entry to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// payloadFn synthesizes the wallet/subset/depth payload for one periodic
// fire; supplied by the caller (e.g. reading from a watchlist).
type payloadFn func() (wallet string, subset []string, depth Depth, patternCacheSize int)

// AddPeriodic registers a cron entry that, on each fire, evaluates the
// agent's trigger gate and enqueues one task if it passes.
func (s *Scheduler) AddPeriodic(a *Agent, fn payloadFn) error {
	if a.TriggerConfig.Kind != TriggerPeriodic || a.TriggerConfig.CronSpec == "" {
		return fmt.Errorf("agent %s has no periodic trigger configured", a.ID)
	}

	_, err := s.cron.AddFunc(a.TriggerConfig.CronSpec, func() {
		wallet, subset, depth, patternCacheSize := fn()
		if wallet == "" {
			return
		}
		if a.State() != StateRunning {
			return
		}

		ok, reason := a.ShouldTriggerInvestigation(wallet, patternCacheSize)
		if !ok {
			a.appendLog("periodic trigger dropped for %s: %s", wallet, reason)
			return
		}

		task := NewTask(newID(), a.ID, wallet, subset, depth, TriggerPeriodic)
		if err := a.Enqueue(task); err != nil {
			log.Warn().Str("agent", a.ID).Err(err).Msg("periodic trigger enqueue failed")
		}
	})
	return err
}
