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
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	// DefaultCommand is expanded per target; {count} and {host} are substituted
	// inside individual arguments, never through a shell.
	DefaultCommand = "fping -q -c {count} {host}"

	DefaultCount = 5

	// grace period for orphaned children holding the output pipe after a kill
	waitDelay = time.Second
)

var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9.-]*[A-Za-z0-9])?$`)

// ValidHost accepts IP literals and DNS names; anything that could be read
// as a flag is rejected.
func ValidHost(host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}

	return len(host) <= 253 && hostnamePattern.MatchString(host)
}

// CommandExecutor runs an external probe program once per target.
type CommandExecutor struct {
	argv    []string
	count   int
	timeout time.Duration
	logger  logger.Logger
}

// NewCommandExecutor parses template into an argument vector. A zero timeout
// lets the probe run until it exits on its own.
func NewCommandExecutor(template string, count int, timeout time.Duration, log logger.Logger) (*CommandExecutor, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultCommand
	}

	argv, err := shellwords.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("parse probe command %q: %w", template, err)
	}

	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	if count <= 0 {
		count = DefaultCount
	}

	return &CommandExecutor{argv: argv, count: count, timeout: timeout, logger: log}, nil
}

// Args returns the argument vector for host.
func (e *CommandExecutor) Args(host string) []string {
	r := strings.NewReplacer("{host}", host, "{count}", strconv.Itoa(e.count))

	args := make([]string, len(e.argv))
	for i, a := range e.argv {
		args[i] = r.Replace(a)
	}

	return args
}

// Probe implements Executor.
func (e *CommandExecutor) Probe(ctx context.Context, target models.ProbeTarget) *models.Metrics {
	if !ValidHost(target.Host) {
		e.logger.Warn().Str("host", target.Host).Int64("device_id", target.DeviceID).Err(ErrInvalidHost).Msg("skipping probe")
		return WorstMetrics(target)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := e.Args(target.Host)

	// fping exits non-zero when any target is unreachable, so the exit status
	// alone says nothing; the output decides.
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = waitDelay

	out, err := cmd.CombinedOutput()

	avg, loss, ok := ParseOutput(target.Host, out)
	if !ok {
		event := e.logger.Debug()
		if err != nil && len(out) == 0 {
			event = e.logger.Error()
		}

		event.Err(err).Str("host", target.Host).Bytes("output", out).Msg("unusable probe output")

		return WorstMetrics(target)
	}

	return metricsFor(target, avg, loss)
}
