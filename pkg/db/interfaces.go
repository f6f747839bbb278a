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

// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/carverauto/healthchecker/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/healthchecker/pkg/db Service

// Service is the device-state store shared by the probe, trap and syslog domains.
// Every method is its own unit of work; writes are last-write-wins.
type Service interface {
	Close() error

	// Probe operations.

	// ListProbeTargets returns enabled, non-virtual devices with a host.
	ListProbeTargets(ctx context.Context) ([]models.ProbeTarget, error)
	// CommitProbeResult writes one probe outcome to the device, its ports and
	// targets, and appends a transition event when the state changed. It
	// reports whether a transition was recorded.
	CommitProbeResult(ctx context.Context, m *models.Metrics, at time.Time) (bool, error)

	// Syslog operations.

	// UpdateStationState sets the state of devices matching the MAC, or the
	// IP when one is given, and returns the number of rows touched.
	UpdateStationState(ctx context.Context, s models.StationState) (int64, error)
	// ListRawLogEvents returns historical syslog lines in [start, end], oldest first.
	ListRawLogEvents(ctx context.Context, start, end time.Time) ([]models.RawLogEvent, error)
}
