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

// Package probe drives periodic reachability probing of managed devices.
package probe

//go:generate mockgen -destination=mock_probe.go -package=probe github.com/carverauto/healthchecker/pkg/probe Executor,LivenessChecker,Clock

import (
	"context"
	"time"

	"github.com/carverauto/healthchecker/pkg/models"
)

// Executor probes a single target. It never fails: problems are reported as
// worst-case metrics.
type Executor interface {
	Probe(ctx context.Context, target models.ProbeTarget) *models.Metrics
}

// LivenessChecker reports whether the checker itself has network connectivity.
type LivenessChecker interface {
	Connected(ctx context.Context) bool
}

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
