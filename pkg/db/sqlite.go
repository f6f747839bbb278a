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
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	liteSelectProbeTargets = `
SELECT id, ipaddress, state
FROM device
WHERE ipaddress IS NOT NULL
  AND ipaddress <> ''
  AND device_type <> ?
  AND enable = 1
ORDER BY id`

	liteUpdateDeviceProbe = `UPDATE device SET state = ?, avg = ?, loss_rate = ?, last_time = ? WHERE id = ?`
	liteUpdatePortState   = `UPDATE device_ifx SET state = ? WHERE device_id = ?`
	liteUpdateTargetProbe = `UPDATE device_ip SET state = ?, avg = ?, loss_rate = ?, last_time = ? WHERE device_id = ?`
	liteInsertTransition  = `INSERT INTO monitor_message (host, info, created_time) VALUES (?, ?, ?)`

	liteUpdateStationByMAC       = `UPDATE device SET state = ? WHERE mac = ?`
	liteUpdateStationByMACOrHost = `UPDATE device SET state = ? WHERE mac = ? OR ipaddress = ?`

	liteSelectRawLogEvents = `
SELECT id, message, created_at
FROM system_events
WHERE julianday(created_at) BETWEEN julianday(?) AND julianday(?)
ORDER BY julianday(created_at), id`
)

// SQLiteStore implements Service on an embedded SQLite database. Timestamps
// are written in the SQLite text layout and range scans go through
// julianday(), so rows stamped by CURRENT_TIMESTAMP or in ISO-8601 "T" form
// compare by instant rather than by string.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string, log logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrSQLitePathRequired
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("%w: create directory %s: %w", ErrFailedOpenDB, dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrStoreUnavailable, err)
	}

	if err := runSQLiteMigrations(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("opened SQLite store")

	return &SQLiteStore{db: db, logger: log}, nil
}

// DB exposes the underlying handle for seeding and inspection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListProbeTargets(ctx context.Context) ([]models.ProbeTarget, error) {
	rows, err := s.db.QueryContext(ctx, liteSelectProbeTargets, models.DeviceTypeVirtual)
	if err != nil {
		return nil, fmt.Errorf("%w: probe targets: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var targets []models.ProbeTarget

	for rows.Next() {
		var (
			t     models.ProbeTarget
			state int
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

func (s *SQLiteStore) CommitProbeResult(ctx context.Context, m *models.Metrics, at time.Time) (bool, error) {
	if m == nil {
		return false, ErrMetricsNil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin: %w", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	at = at.UTC()
	state := int(m.State)

	if _, err := tx.ExecContext(ctx, liteUpdateDeviceProbe, state, m.AvgLatency, m.LossRate, at, m.TargetID); err != nil {
		return false, fmt.Errorf("%w: device %d: %w", ErrFailedToUpdate, m.TargetID, err)
	}

	if _, err := tx.ExecContext(ctx, liteUpdatePortState, state, m.TargetID); err != nil {
		return false, fmt.Errorf("%w: ports of device %d: %w", ErrFailedToUpdate, m.TargetID, err)
	}

	if _, err := tx.ExecContext(ctx, liteUpdateTargetProbe, state, m.AvgLatency, m.LossRate, at, m.TargetID); err != nil {
		return false, fmt.Errorf("%w: targets of device %d: %w", ErrFailedToUpdate, m.TargetID, err)
	}

	info, changed := m.Transition()
	if changed {
		if _, err := tx.ExecContext(ctx, liteInsertTransition, m.Host, info, at); err != nil {
			return false, fmt.Errorf("%w: transition for %s: %w", ErrFailedToInsert, m.Host, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit: %w", ErrFailedToUpdate, err)
	}

	return changed, nil
}

func (s *SQLiteStore) UpdateStationState(ctx context.Context, st models.StationState) (int64, error) {
	if st.MAC == "" && st.IP == "" {
		return 0, ErrStationIdentity
	}

	var (
		res sql.Result
		err error
	)

	if st.IP == "" {
		res, err = s.db.ExecContext(ctx, liteUpdateStationByMAC, int(st.State), st.MAC)
	} else {
		res, err = s.db.ExecContext(ctx, liteUpdateStationByMACOrHost, int(st.State), st.MAC, st.IP)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: station %s: %w", ErrFailedToUpdate, st.MAC, err)
	}

	return res.RowsAffected()
}

func (s *SQLiteStore) ListRawLogEvents(ctx context.Context, start, end time.Time) ([]models.RawLogEvent, error) {
	rows, err := s.db.QueryContext(ctx, liteSelectRawLogEvents, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: raw log events: %w", ErrFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

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
