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
	"strconv"
	"strings"

	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	fieldsWithLatency = 7 // host xmt rcv loss% min avg max
	fieldsLossOnly    = 4 // host xmt rcv loss%
	lossField         = 3
	avgField          = 5
)

// fping -q prints "host : xmt/rcv/%loss = 5/5/0%, min/avg/max = 0.1/0.2/0.3".
var summaryNormalizer = strings.NewReplacer(
	" : ", " ",
	"xmt/rcv/%loss = ", "",
	", min/avg/max = ", " ",
	"/", " ",
)

// ParseOutput extracts average latency and loss percentage from probe output.
// ok is false when the output has neither the 7-field nor the 4-field shape.
func ParseOutput(host string, out []byte) (avg, loss float64, ok bool) {
	fields := strings.Fields(summaryNormalizer.Replace(summaryLine(host, string(out))))

	switch len(fields) {
	case fieldsWithLatency:
		loss, ok = parseLoss(fields[lossField])
		if !ok {
			return 0, models.WorstLossRate, false
		}

		parsed, err := strconv.ParseFloat(fields[avgField], 64)
		if err != nil {
			return 0, models.WorstLossRate, false
		}

		return parsed, loss, true
	case fieldsLossOnly:
		loss, ok = parseLoss(fields[lossField])
		if !ok {
			return 0, models.WorstLossRate, false
		}

		return 0, loss, true
	default:
		return 0, models.WorstLossRate, false
	}
}

// summaryLine picks the last line that starts with the probed host, falling
// back to the whole output.
func summaryLine(host, out string) string {
	if host == "" {
		return out
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, host+" ") {
			return line
		}
	}

	return out
}

func parseLoss(field string) (float64, bool) {
	loss, err := strconv.ParseFloat(strings.TrimSuffix(field, "%"), 64)
	if err != nil {
		return 0, false
	}

	return loss, true
}

// NewMetrics builds the probe outcome for target from raw probe output.
func NewMetrics(target models.ProbeTarget, out []byte) *models.Metrics {
	avg, loss, _ := ParseOutput(target.Host, out)

	return metricsFor(target, avg, loss)
}

// WorstMetrics is reported when the probe could not run at all.
func WorstMetrics(target models.ProbeTarget) *models.Metrics {
	return metricsFor(target, 0, models.WorstLossRate)
}

func metricsFor(target models.ProbeTarget, avg, loss float64) *models.Metrics {
	state := models.StateDown
	if avg > 0 {
		state = models.StateUp
	}

	return &models.Metrics{
		TargetID:      target.DeviceID,
		Host:          target.Host,
		PreviousState: target.PreviousState,
		State:         state,
		AvgLatency:    avg,
		LossRate:      loss,
	}
}
