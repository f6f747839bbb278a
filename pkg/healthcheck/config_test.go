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

package healthcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/healthchecker/pkg/config"
	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
	"github.com/carverauto/healthchecker/pkg/trap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 162, cfg.TrapPort)
	assert.Equal(t, "0.0.0.0", cfg.TrapBind)
	assert.Equal(t, "::1", cfg.TrapBind6)
	assert.Equal(t, DefaultProcessCount(), cfg.ProcessCount)
	assert.LessOrEqual(t, cfg.ProcessCount, 10)
	assert.Equal(t, 5, cfg.FpingCount)
	assert.Equal(t, 1, cfg.IntervalTime)
	assert.Equal(t, time.Minute, cfg.Interval())
	assert.Equal(t, 10, cfg.MaxInstances)
	assert.Equal(t, "127.0.0.1", cfg.SyslogHost)
	assert.Equal(t, 8889, cfg.SyslogPort)
	assert.Equal(t, 10, cfg.SyslogWorkers)
	assert.Equal(t, 1024, cfg.SyslogReadSize)
	assert.Equal(t, 20*time.Second, cfg.RedoWindow.Std())
	assert.Equal(t, db.DriverPostgres, cfg.Database.Driver)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaultsTreatsZeroAsUnset(t *testing.T) {
	cfg := &Config{ProcessCount: 3}
	cfg.ApplyDefaults()

	assert.Equal(t, 3, cfg.ProcessCount)
	assert.Equal(t, 5, cfg.FpingCount)
	assert.NotNil(t, cfg.Logging)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{
			name:   "bad trap port",
			mutate: func(c *Config) { c.TrapPort = 70000 },
			want:   ErrInvalidPort,
		},
		{
			name:   "negative process count",
			mutate: func(c *Config) { c.ProcessCount = -1 },
			want:   ErrInvalidCount,
		},
		{
			name:   "negative redo window",
			mutate: func(c *Config) { c.RedoWindow = models.Duration(-time.Second) },
			want:   ErrInvalidCount,
		},
		{
			name:   "bad redo start",
			mutate: func(c *Config) { c.RedoStartTime = "yesterday" },
			want:   ErrInvalidRedoStart,
		},
		{
			name:   "unknown driver",
			mutate: func(c *Config) { c.Database.Driver = "oracle" },
			want:   db.ErrUnsupportedDriver,
		},
		{
			name: "unknown severity",
			mutate: func(c *Config) {
				c.Handlers = map[string]models.HandlerRule{"1.3.6.1.6.3.1.1.5.3": {Severity: "fatal"}}
			},
			want: trap.ErrInvalidSeverity,
		},
		{
			name: "bad expiration",
			mutate: func(c *Config) {
				c.Handlers = map[string]models.HandlerRule{"1.3.6.1.6.3.1.1.5.3": {Severity: "critical", Expiration: "5w"}}
			},
			want: trap.ErrInvalidExpiration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestReplayStart(t *testing.T) {
	cfg := DefaultConfig()

	start, err := cfg.ReplayStart()
	require.NoError(t, err)
	assert.Nil(t, start)

	cfg.RedoStartTime = "2024-05-01T08:00:00Z"
	start, err = cfg.ReplayStart()
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.True(t, start.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)))

	cfg.RedoStartTime = "2024-05-01 08:00:00"
	start, err = cfg.ReplayStart()
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.Equal(t, 8, start.Hour())
}

func TestLoadYAMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthchecker.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`
community: public
ipv6: true
trap_port: 1162
process_count: 4
fping_count: 3
interval_time: 2
redo_start_time: "2024-05-01 08:00:00"
redo_window: 30s
database:
  driver: sqlite
  path: /var/lib/healthchecker/state.db
handlers:
  .1.3.6.1.6.3.1.1.5.3:
    severity: critical
    expiration: 1d2h
  1.3.6.1.6.3.1.1.5.4:
    severity: informational
    blackhole: true
`), 0o600))

	cfg := DefaultConfig()
	require.NoError(t, config.NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, cfg))

	assert.Equal(t, "public", cfg.Community)
	assert.True(t, cfg.IPv6)
	assert.Equal(t, 1162, cfg.TrapPort)
	assert.Equal(t, 4, cfg.ProcessCount)
	assert.Equal(t, 3, cfg.FpingCount)
	assert.Equal(t, 2*time.Minute, cfg.Interval())
	assert.Equal(t, 30*time.Second, cfg.RedoWindow.Std())
	assert.Equal(t, db.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 8889, cfg.SyslogPort, "unset keys keep their defaults")

	table, err := trap.NewHandlerTable(cfg.Handlers)
	require.NoError(t, err)

	rule, ok := table.Lookup("1.3.6.1.6.3.1.1.5.3")
	require.True(t, ok)
	assert.Equal(t, "critical", rule.Severity)
	assert.Equal(t, "1d2h", rule.Expiration)
}
