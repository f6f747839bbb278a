/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const DefaultMaxInstances = 10

// SchedulerConfig bounds the periodic probing job.
type SchedulerConfig struct {
	// Interval between round starts.
	Interval time.Duration
	// Concurrency is the number of probes in flight across all rounds.
	Concurrency int
	// MaxInstances caps how many rounds may overlap; extra ticks are skipped.
	MaxInstances int
}

// RoundSummary describes one probe round.
type RoundSummary struct {
	ID          string
	Targets     int
	Probed      int
	Committed   int
	Transitions int
	Failed      int
	Skipped     bool
}

// Scheduler runs probe rounds on a fixed interval: liveness check, target
// selection, bounded fan-out, barrier, then one commit per target.
type Scheduler struct {
	cfg      SchedulerConfig
	store    db.Service
	executor Executor
	liveness LivenessChecker
	clock    Clock
	logger   logger.Logger

	cron *cron.Cron
	pool *ants.Pool

	mu      sync.Mutex
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
}

// NewScheduler wires a scheduler. A nil liveness checker disables the pre-check
// and a nil clock uses wall time.
func NewScheduler(
	cfg SchedulerConfig, store db.Service, executor Executor, liveness LivenessChecker, clock Clock, log logger.Logger,
) (*Scheduler, error) {
	if cfg.Interval < time.Second {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval)
	}

	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, cfg.Concurrency)
	}

	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = DefaultMaxInstances
	}

	if liveness == nil {
		liveness = AlwaysConnected{}
	}

	if clock == nil {
		clock = realClock{}
	}

	adapter := schedLogger{logger: log}

	pool, err := ants.NewPool(cfg.Concurrency,
		ants.WithLogger(adapter),
		ants.WithPanicHandler(func(p interface{}) {
			log.Error().Interface("panic", p).Msg("probe worker panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create probe pool: %w", err)
	}

	s := &Scheduler{
		cfg:      cfg,
		store:    store,
		executor: executor,
		liveness: liveness,
		clock:    clock,
		logger:   log,
		pool:     pool,
	}

	s.cron = cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), limitInstances(int64(cfg.MaxInstances), log)),
	)

	return s, nil
}

// limitInstances skips a tick when n rounds are already running.
func limitInstances(n int64, log logger.Logger) cron.JobWrapper {
	sem := semaphore.NewWeighted(n)

	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			if !sem.TryAcquire(1) {
				log.Warn().Int64("max_instances", n).Msg("probe round still running at max instances, skipping tick")
				return
			}
			defer sem.Release(1)

			j.Run()
		})
	}
}

// Start schedules rounds every interval. The first round runs one interval
// after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSchedulerStarted
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron.Schedule(cron.Every(s.cfg.Interval), cron.FuncJob(func() {
		if _, err := s.RunRound(s.runCtx); err != nil && !errors.Is(err, ErrNotConnected) {
			s.logger.Error().Err(err).Msg("probe round aborted")
		}
	}))
	s.cron.Start()
	s.started = true

	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("concurrency", s.cfg.Concurrency).
		Int("max_instances", s.cfg.MaxInstances).
		Msg("probe scheduler started")

	return nil
}

// Stop prevents new rounds and waits for running ones to drain. If ctx expires
// first, in-flight probes are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		drained := s.cron.Stop()

		select {
		case <-drained.Done():
		case <-ctx.Done():
			s.logger.Warn().Msg("probe rounds did not drain before shutdown deadline, cancelling")
		}

		s.cancel()
	}

	s.pool.Release()

	s.logger.Info().Msg("probe scheduler stopped")

	return nil
}

// RunRound performs one complete probe round.
func (s *Scheduler) RunRound(ctx context.Context) (RoundSummary, error) {
	summary := RoundSummary{ID: uuid.NewString()}
	log := s.logger.With().Str("round", summary.ID).Logger()

	if !s.liveness.Connected(ctx) {
		summary.Skipped = true

		log.Error().Msg("healthchecker is not connected, skipping probe round")

		return summary, ErrNotConnected
	}

	targets, err := s.store.ListProbeTargets(ctx)
	if err != nil {
		return summary, fmt.Errorf("list probe targets: %w", err)
	}

	summary.Targets = len(targets)
	started := s.clock.Now()

	results := s.fanOut(ctx, targets)

	for _, m := range results {
		if m == nil {
			summary.Failed++
			continue
		}

		summary.Probed++

		changed, err := s.store.CommitProbeResult(ctx, m, s.clock.Now())
		if err != nil {
			if errors.Is(err, db.ErrStoreUnavailable) {
				// everything not yet committed is lost for this round
				summary.Failed = summary.Targets - summary.Committed
				return summary, fmt.Errorf("commit probe results: %w", err)
			}

			summary.Failed++

			log.Error().Err(err).Str("host", m.Host).Int64("device_id", m.TargetID).Msg("failed to commit probe result")

			continue
		}

		summary.Committed++

		if changed {
			summary.Transitions++

			info, _ := m.Transition()
			log.Info().Str("host", m.Host).Str("transition", info).Float64("loss", m.LossRate).Msg("device state changed")
		}
	}

	log.Info().
		Int("targets", summary.Targets).
		Int("committed", summary.Committed).
		Int("transitions", summary.Transitions).
		Int("failed", summary.Failed).
		Dur("elapsed", s.clock.Now().Sub(started)).
		Msg("probe round complete")

	return summary, nil
}

// fanOut probes every target on the shared pool and waits for all of them.
// A slot stays nil when the probe could not be submitted.
func (s *Scheduler) fanOut(ctx context.Context, targets []models.ProbeTarget) []*models.Metrics {
	results := make([]*models.Metrics, len(targets))

	var wg sync.WaitGroup

	for i := range targets {
		target := targets[i]
		idx := i

		wg.Add(1)

		err := s.pool.Submit(func() {
			defer wg.Done()

			results[idx] = s.probeOne(ctx, target)
		})
		if err != nil {
			wg.Done()
			s.logger.Error().Err(err).Str("host", target.Host).Msg("failed to submit probe")
		}
	}

	wg.Wait()

	return results
}

func (s *Scheduler) probeOne(ctx context.Context, target models.ProbeTarget) (m *models.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("host", target.Host).Msg("probe panicked")
			m = WorstMetrics(target)
		}
	}()

	return s.executor.Probe(ctx, target)
}
