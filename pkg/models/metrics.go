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

package models

import "time"

const (
	TransitionLinkUp   = "linkUp"
	TransitionLinkDown = "linkDown"
)

// WorstLossRate is reported when a probe produced no usable output.
const WorstLossRate = 100.0

// Metrics is the outcome of probing one target.
type Metrics struct {
	TargetID      int64       `json:"target_id"`
	Host          string      `json:"host"`
	PreviousState DeviceState `json:"previous_state"`
	State         DeviceState `json:"state"`
	AvgLatency    float64     `json:"avg"`
	LossRate      float64     `json:"loss"`
}

// Transition reports the transition label when the probed state differs from
// the stored one.
func (m *Metrics) Transition() (string, bool) {
	switch {
	case m.PreviousState == m.State:
		return "", false
	case m.State == StateUp:
		return TransitionLinkUp, true
	default:
		return TransitionLinkDown, true
	}
}

// TransitionEvent is an append-only record of an observed state change.
type TransitionEvent struct {
	ID        int64     `json:"id"`
	Host      string    `json:"host"`
	Info      string    `json:"info"`
	CreatedAt time.Time `json:"created_time"`
}

// RawLogEvent is a historical syslog line used for replay.
type RawLogEvent struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
