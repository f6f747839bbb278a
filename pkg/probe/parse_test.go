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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/carverauto/healthchecker/pkg/models"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		wantAvg  float64
		wantLoss float64
		wantOK   bool
	}{
		{
			name:    "seven whitespace fields",
			out:     "10.0.0.1 5 5 0% 0.10 0.25 0.40",
			wantAvg: 0.25, wantLoss: 0, wantOK: true,
		},
		{
			name:    "fping summary with latency",
			out:     "10.0.0.1 : xmt/rcv/%loss = 5/4/20%, min/avg/max = 1.02/1.27/1.90\n",
			wantAvg: 1.27, wantLoss: 20, wantOK: true,
		},
		{
			name:    "fping summary unreachable",
			out:     "10.0.0.1 : xmt/rcv/%loss = 5/0/100%\n",
			wantAvg: 0, wantLoss: 100, wantOK: true,
		},
		{
			name:    "four whitespace fields",
			out:     "10.0.0.1 5 0 100%",
			wantAvg: 0, wantLoss: 100, wantOK: true,
		},
		{
			name:    "summary after unreachable chatter",
			out:     "ICMP Host Unreachable from 10.0.0.254 for ICMP Echo sent to 10.0.0.1\n10.0.0.1 : xmt/rcv/%loss = 5/3/40%, min/avg/max = 2.0/3.5/5.0\n",
			wantAvg: 3.5, wantLoss: 40, wantOK: true,
		},
		{
			name:     "empty output",
			out:      "",
			wantLoss: models.WorstLossRate,
		},
		{
			name:     "resolver error",
			out:      "10.0.0.1: Name or service not known",
			wantLoss: models.WorstLossRate,
		},
		{
			name:     "non numeric average",
			out:      "10.0.0.1 5 5 0% a b c",
			wantLoss: models.WorstLossRate,
		},
		{
			name:     "non numeric loss",
			out:      "10.0.0.1 5 5 lots",
			wantLoss: models.WorstLossRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, loss, ok := ParseOutput("10.0.0.1", []byte(tt.out))
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.wantAvg, avg, 1e-9)
			assert.InDelta(t, tt.wantLoss, loss, 1e-9)
		})
	}
}

func TestNewMetricsState(t *testing.T) {
	target := models.ProbeTarget{DeviceID: 7, Host: "10.0.0.1", PreviousState: models.StateDown}

	up := NewMetrics(target, []byte("10.0.0.1 5 5 0% 0.1 0.2 0.3"))
	assert.Equal(t, models.StateUp, up.State)
	assert.Equal(t, int64(7), up.TargetID)
	assert.Equal(t, models.StateDown, up.PreviousState)

	down := NewMetrics(target, []byte("10.0.0.1 5 0 100%"))
	assert.Equal(t, models.StateDown, down.State)
	assert.InDelta(t, 0.0, down.AvgLatency, 1e-9)

	garbage := NewMetrics(target, []byte("something went wrong"))
	assert.Equal(t, models.StateDown, garbage.State)
	assert.InDelta(t, models.WorstLossRate, garbage.LossRate, 1e-9)

	worst := WorstMetrics(target)
	assert.Equal(t, models.StateDown, worst.State)
	assert.InDelta(t, models.WorstLossRate, worst.LossRate, 1e-9)
}

func TestParseOutputSevenFieldsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		avg := float64(rapid.IntRange(1, 500000).Draw(t, "avg_micros")) / 1000
		loss := rapid.IntRange(0, 99).Draw(t, "loss")

		out := fmt.Sprintf("10.0.0.1 : xmt/rcv/%%loss = 5/5/%d%%, min/avg/max = 0.001/%.3f/999.0", loss, avg)

		gotAvg, gotLoss, ok := ParseOutput("10.0.0.1", []byte(out))
		if !ok {
			t.Fatalf("output %q did not parse", out)
		}

		if gotAvg != avg || gotLoss != float64(loss) {
			t.Fatalf("got avg=%v loss=%v from %q", gotAvg, gotLoss, out)
		}

		m := NewMetrics(models.ProbeTarget{Host: "10.0.0.1"}, []byte(out))
		if m.State != models.StateUp {
			t.Fatalf("positive average must mean up, got %v", m.State)
		}
	})
}

func TestParseOutputOtherShapesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Filter(func(n int) bool {
			return n != fieldsWithLatency && n != fieldsLossOnly
		}).Draw(t, "fields")

		words := make([]string, n)
		for i := range words {
			words[i] = rapid.StringMatching(`[a-z0-9.%]{1,6}`).Draw(t, "word")
		}

		avg, loss, ok := ParseOutput("", []byte(strings.Join(words, " ")))
		if ok || avg != 0 || loss != models.WorstLossRate {
			t.Fatalf("shape with %d fields parsed as avg=%v loss=%v ok=%v", n, avg, loss, ok)
		}
	})
}
