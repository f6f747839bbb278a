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

package syslog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	DefaultWorkers   = 10
	DefaultQueueSize = 1024

	defaultDrainTimeout = 30 * time.Second
)

// Offloader moves store writes off the reactor thread. Submit never blocks;
// a bounded queue feeds a fixed pool of writers.
type Offloader struct {
	store  db.Service
	pool   *ants.Pool
	queue  chan models.StationState
	logger logger.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	done    chan struct{}
	ctx     context.Context

	dropped atomic.Int64
	applied atomic.Int64
}

func NewOffloader(store db.Service, workers, queueSize int, log logger.Logger) (*Offloader, error) {
	if store == nil {
		return nil, errNilStore
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}

	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		log.Error().Interface("panic", p).Msg("station update panicked")
	}))
	if err != nil {
		return nil, fmt.Errorf("create syslog writer pool: %w", err)
	}

	return &Offloader{
		store:  store,
		pool:   pool,
		queue:  make(chan models.StationState, queueSize),
		logger: log,
		done:   make(chan struct{}),
		ctx:    context.Background(),
	}, nil
}

// Start launches the queue consumer. Writes use ctx.
func (o *Offloader) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started || o.closed {
		return
	}

	o.started = true
	o.ctx = ctx

	go o.drain()
}

func (o *Offloader) drain() {
	defer close(o.done)

	for s := range o.queue {
		state := s

		// blocks while every writer is busy, which backs up the queue
		if err := o.pool.Submit(func() { _ = o.Apply(o.ctx, state) }); err != nil {
			o.logger.Error().Err(err).Str("mac", state.MAC).Msg("failed to schedule station update")
		}
	}
}

// Submit enqueues s without blocking. It reports false when the update was
// dropped because the queue is full or the offloader is stopped.
func (o *Offloader) Submit(s models.StationState) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return false
	}

	select {
	case o.queue <- s:
		return true
	default:
		o.dropped.Add(1)
		o.logger.Warn().Str("mac", s.MAC).Int("queue", cap(o.queue)).Msg("station update queue full, dropping message")

		return false
	}
}

// Apply writes s synchronously. Failures are logged and returned.
func (o *Offloader) Apply(ctx context.Context, s models.StationState) error {
	rows, err := o.store.UpdateStationState(ctx, s)
	if err != nil {
		o.logger.Error().Err(err).Str("mac", s.MAC).Str("ip", s.IP).Msg("failed to update station state")
		return err
	}

	o.applied.Add(1)

	o.logger.Debug().
		Str("mac", s.MAC).
		Str("ip", s.IP).
		Stringer("state", s.State).
		Int64("rows", rows).
		Msg("station state updated")

	return nil
}

// Dropped is the number of updates rejected by Submit for lack of room.
func (o *Offloader) Dropped() int64 { return o.dropped.Load() }

// Applied is the number of successful store writes.
func (o *Offloader) Applied() int64 { return o.applied.Load() }

// Stop rejects new updates, lets queued ones finish and waits for in-flight
// writes until ctx expires.
func (o *Offloader) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}

	o.closed = true
	started := o.started
	close(o.queue)
	o.mu.Unlock()

	if started {
		select {
		case <-o.done:
		case <-ctx.Done():
			o.pool.Release()
			return fmt.Errorf("drain station update queue: %w", ctx.Err())
		}
	}

	timeout := defaultDrainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	if err := o.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("wait for station updates: %w", err)
	}

	return nil
}
