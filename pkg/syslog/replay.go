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
	"time"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
)

const DefaultReplayWindow = 20 * time.Second

// ReplaySummary counts what a replay pass did with each stored line.
type ReplaySummary struct {
	Events  int
	Parsed  int
	Applied int
	Failed  int
}

// Replayer reprocesses stored syslog lines through the live parse and
// update path.
type Replayer struct {
	store     db.Service
	offloader *Offloader
	window    time.Duration
	logger    logger.Logger
}

func NewReplayer(store db.Service, offloader *Offloader, window time.Duration, log logger.Logger) *Replayer {
	if window <= 0 {
		window = DefaultReplayWindow
	}

	return &Replayer{store: store, offloader: offloader, window: window, logger: log}
}

// Replay applies every stored line in [start, start+window], oldest first,
// and returns once all writes are done. Per-line failures are counted, not
// returned.
func (r *Replayer) Replay(ctx context.Context, start time.Time) (ReplaySummary, error) {
	var summary ReplaySummary

	end := start.Add(r.window)

	events, err := r.store.ListRawLogEvents(ctx, start, end)
	if err != nil {
		return summary, fmt.Errorf("list raw log events: %w", err)
	}

	summary.Events = len(events)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		state, ok := ParseMessage(ev.Message)
		if !ok {
			continue
		}

		summary.Parsed++

		if err := r.offloader.Apply(ctx, state); err != nil {
			summary.Failed++
			continue
		}

		summary.Applied++
	}

	r.logger.Info().
		Time("start", start).
		Time("end", end).
		Int("events", summary.Events).
		Int("parsed", summary.Parsed).
		Int("applied", summary.Applied).
		Int("failed", summary.Failed).
		Msg("syslog replay complete")

	return summary, nil
}
