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

// Package healthcheck assembles the probe, trap and syslog domains around one
// device-state store.
package healthcheck

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
	"github.com/carverauto/healthchecker/pkg/natsutil"
	"github.com/carverauto/healthchecker/pkg/probe"
	"github.com/carverauto/healthchecker/pkg/syslog"
	"github.com/carverauto/healthchecker/pkg/trap"
)

const (
	DefaultConfigPath = "/etc/healthchecker.yaml"

	maxDefaultProcessCount = 10
	maxPort                = 65535
)

// redoTimeLayouts are tried in order when parsing redo_start_time.
var redoTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var (
	ErrInvalidPort      = errors.New("port out of range")
	ErrInvalidCount     = errors.New("value must not be negative")
	ErrInvalidRedoStart = errors.New("invalid redo_start_time")
)

// Config is the complete configuration file.
type Config struct {
	Community string `json:"community" yaml:"community"`
	IPv6      bool   `json:"ipv6" yaml:"ipv6"`
	TrapPort  int    `json:"trap_port" yaml:"trap_port"`
	TrapBind  string `json:"trap_bind" yaml:"trap_bind"`
	TrapBind6 string `json:"trap_bind6" yaml:"trap_bind6"`

	ProcessCount    int             `json:"process_count" yaml:"process_count"`
	FpingCount      int             `json:"fping_count" yaml:"fping_count"`
	IntervalTime    int             `json:"interval_time" yaml:"interval_time"` // minutes
	MaxInstances    int             `json:"max_instances" yaml:"max_instances"`
	ProbeCommand    string          `json:"probe_command" yaml:"probe_command"`
	ProbeTimeout    models.Duration `json:"probe_timeout" yaml:"probe_timeout"`
	LivenessURL     string          `json:"liveness_url" yaml:"liveness_url"`
	LivenessTimeout models.Duration `json:"liveness_timeout" yaml:"liveness_timeout"`

	RedoStartTime string          `json:"redo_start_time" yaml:"redo_start_time"`
	RedoWindow    models.Duration `json:"redo_window" yaml:"redo_window"`

	SyslogHost     string `json:"syslog_host" yaml:"syslog_host"`
	SyslogPort     int    `json:"syslog_port" yaml:"syslog_port"`
	SyslogWorkers  int    `json:"syslog_workers" yaml:"syslog_workers"`
	SyslogQueue    int    `json:"syslog_queue" yaml:"syslog_queue"`
	SyslogReadSize int    `json:"syslog_read_size" yaml:"syslog_read_size"`

	Database db.Config                     `json:"database" yaml:"database"`
	Handlers map[string]models.HandlerRule `json:"handlers" yaml:"handlers"`
	NATS     *natsutil.Config              `json:"nats,omitempty" yaml:"nats,omitempty"`
	Logging  *logger.Config                `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// DefaultProcessCount is 2*NumCPU+1, capped at 10.
func DefaultProcessCount() int {
	return min(2*runtime.NumCPU()+1, maxDefaultProcessCount)
}

// DefaultConfig returns a configuration a file can be decoded over.
func DefaultConfig() *Config {
	cfg := &Config{
		TrapPort:    trap.DefaultPort,
		LivenessURL: probe.DefaultLivenessURL,
		Database:    db.Config{Driver: db.DriverPostgres},
		Logging:     logger.DefaultConfig(),
	}

	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills every unset or zero value. Zero counts mean "default",
// as they always have for process_count, fping_count and interval_time.
func (c *Config) ApplyDefaults() {
	if c.TrapPort == 0 {
		c.TrapPort = trap.DefaultPort
	}

	if c.TrapBind == "" {
		c.TrapBind = trap.DefaultBind4
	}

	if c.TrapBind6 == "" {
		c.TrapBind6 = trap.DefaultBind6
	}

	if c.ProcessCount == 0 {
		c.ProcessCount = DefaultProcessCount()
	}

	if c.FpingCount == 0 {
		c.FpingCount = probe.DefaultCount
	}

	if c.IntervalTime == 0 {
		c.IntervalTime = 1
	}

	if c.MaxInstances == 0 {
		c.MaxInstances = probe.DefaultMaxInstances
	}

	if c.ProbeCommand == "" {
		c.ProbeCommand = probe.DefaultCommand
	}

	if c.RedoWindow == 0 {
		c.RedoWindow = models.Duration(syslog.DefaultReplayWindow)
	}

	if c.SyslogHost == "" {
		c.SyslogHost = syslog.DefaultHost
	}

	if c.SyslogPort == 0 {
		c.SyslogPort = syslog.DefaultPort
	}

	if c.SyslogWorkers == 0 {
		c.SyslogWorkers = syslog.DefaultWorkers
	}

	if c.SyslogQueue == 0 {
		c.SyslogQueue = syslog.DefaultQueueSize
	}

	if c.SyslogReadSize == 0 {
		c.SyslogReadSize = syslog.DefaultReadSize
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	for name, port := range map[string]int{"trap_port": c.TrapPort, "syslog_port": c.SyslogPort} {
		if port < 0 || port > maxPort {
			errs = append(errs, fmt.Errorf("%w: %s=%d", ErrInvalidPort, name, port))
		}
	}

	for name, n := range map[string]int{
		"process_count":    c.ProcessCount,
		"fping_count":      c.FpingCount,
		"interval_time":    c.IntervalTime,
		"max_instances":    c.MaxInstances,
		"syslog_workers":   c.SyslogWorkers,
		"syslog_queue":     c.SyslogQueue,
		"syslog_read_size": c.SyslogReadSize,
	} {
		if n < 0 {
			errs = append(errs, fmt.Errorf("%w: %s=%d", ErrInvalidCount, name, n))
		}
	}

	for name, d := range map[string]models.Duration{
		"probe_timeout":    c.ProbeTimeout,
		"liveness_timeout": c.LivenessTimeout,
		"redo_window":      c.RedoWindow,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%w: %s=%s", ErrInvalidCount, name, d))
		}
	}

	if _, err := c.ReplayStart(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if _, err := trap.NewHandlerTable(c.Handlers); err != nil {
		errs = append(errs, err)
	}

	if c.Logging != nil {
		if _, err := c.Logging.ParsedLevel(); err != nil {
			errs = append(errs, fmt.Errorf("logging: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ReplayStart parses redo_start_time. It returns nil when replay is disabled.
func (c *Config) ReplayStart() (*time.Time, error) {
	if c.RedoStartTime == "" {
		return nil, nil
	}

	for _, layout := range redoTimeLayouts {
		if t, err := time.ParseInLocation(layout, c.RedoStartTime, time.Local); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidRedoStart, c.RedoStartTime)
}

// Interval is interval_time as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalTime) * time.Minute
}
