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

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	pgSelectProbeTargets = `
SELECT id, ipaddress, state
FROM device
WHERE ipaddress IS NOT NULL
  AND ipaddress <> ''
  AND device_type <> $1
  AND enable = 1
ORDER BY id`

	pgUpdateDeviceProbe = `
UPDATE device
SET state = $2, avg = $3, loss_rate = $4, last_time = $5
WHERE id = $1`

	pgUpdatePortState = `UPDATE device_ifx SET state = $2 WHERE device_id = $1`

	pgUpdateTargetProbe = `
UPDATE device_ip
SET state = $2, avg = $3, loss_rate = $4, last_time = $5
WHERE device_id = $1`

	pgInsertTransition = `INSERT INTO monitor_message (host, info, created_time) VALUES ($1, $2, $3)`

	pgUpdateStationByMAC       = `UPDATE device SET state = $1 WHERE mac = $2`
	pgUpdateStationByMACOrHost = `UPDATE device SET state = $1 WHERE mac = $2 OR ipaddress = $3`

	pgSelectRawLogEvents = `
SELECT id, message, created_at
FROM system_events
WHERE created_at BETWEEN $1 AND $2
ORDER BY created_at, id`
)

// PostgresStore implements Service on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool, log logger.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: log}
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ListProbeTargets(ctx context.Context) ([]models.ProbeTarget, error) {
	rows, err := s.pool.Query(ctx, pgSelectProbeTargets, models.DeviceTypeVirtual)
	if err != nil {
		return nil, classifyPgError(ErrFailedToQuery, "probe targets", err)
	}
	defer rows.Close()

	var targets []models.ProbeTarget

	for rows.Next() {
		var (
			t     models.ProbeTarget
			state int16
		)

		if err := rows.Scan(&t.DeviceID, &t.Host, &state); err != nil {
			return nil, fmt.Errorf("%w: probe target: %w", ErrFailedToScan, err)
		}

		t.PreviousState = models.DeviceState(state)
		targets = append(targets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: probe targets: %w", ErrFailedToQuery, err)
	}

	return targets, nil
}

func (s *PostgresStore) CommitProbeResult(ctx context.Context, m *models.Metrics, at time.Time) (bool, error) {
	if m == nil {
		return false, ErrMetricsNil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: begin: %w", ErrStoreUnavailable, err)
	}

	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug().Err(rbErr).Msg("rollback after probe commit")
		}
	}()

	state := int16(m.State)

	if _, err := tx.Exec(ctx, pgUpdateDeviceProbe, m.TargetID, state, m.AvgLatency, m.LossRate, at); err != nil {
		return false, fmt.Errorf("%w: device %d: %w", ErrFailedToUpdate, m.TargetID, err)
	}

	if _, err := tx.Exec(ctx, pgUpdatePortState, m.TargetID, state); err != nil {
		return false, fmt.Errorf("%w: ports of device %d: %w", ErrFailedToUpdate, m.TargetID, err)
	}

	if _, err := tx.Exec(ctx, pgUpdateTargetProbe, m.TargetID, state, m.AvgLatency, m.LossRate, at); err != nil {
		return false, fmt.Errorf("%w: targets of device %d: %w", ErrFailedToUpdate, m.TargetID, err)
	}

	info, changed := m.Transition()
	if changed {
		if _, err := tx.Exec(ctx, pgInsertTransition, m.Host, info, at); err != nil {
			return false, fmt.Errorf("%w: transition for %s: %w", ErrFailedToInsert, m.Host, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, classifyPgError(ErrFailedToUpdate, "commit", err)
	}

	return changed, nil
}

func (s *PostgresStore) UpdateStationState(ctx context.Context, st models.StationState) (int64, error) {
	if st.MAC == "" && st.IP == "" {
		return 0, ErrStationIdentity
	}

	var (
		tag pgconn.CommandTag
		err error
	)

	if st.IP == "" {
		tag, err = s.pool.Exec(ctx, pgUpdateStationByMAC, int16(st.State), st.MAC)
	} else {
		tag, err = s.pool.Exec(ctx, pgUpdateStationByMACOrHost, int16(st.State), st.MAC, st.IP)
	}

	if err != nil {
		return 0, classifyPgError(ErrFailedToUpdate, "station "+st.MAC, err)
	}

	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListRawLogEvents(ctx context.Context, start, end time.Time) ([]models.RawLogEvent, error) {
	rows, err := s.pool.Query(ctx, pgSelectRawLogEvents, start, end)
	if err != nil {
		return nil, classifyPgError(ErrFailedToQuery, "raw log events", err)
	}
	defer rows.Close()

	var events []models.RawLogEvent

	for rows.Next() {
		var e models.RawLogEvent
		if err := rows.Scan(&e.ID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: raw log event: %w", ErrFailedToScan, err)
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: raw log events: %w", ErrFailedToQuery, err)
	}

	return events, nil
}

// classifyPgError marks connection-level failures as ErrStoreUnavailable so
// callers can tell "store down" from "this row failed".
func classifyPgError(kind error, what string, err error) error {
	var connectErr *pgconn.ConnectError

	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, what, err)
	}

	return fmt.Errorf("%w: %s: %w", kind, what, err)
}
