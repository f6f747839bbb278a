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

// Package models holds the shared data types of the healthchecker.
package models

import "time"

// DeviceState is the binary reachability state stored on devices, ports and targets.
type DeviceState int

const (
	StateDown DeviceState = 0
	StateUp   DeviceState = 1
)

// DeviceTypeVirtual marks devices that exist only for bookkeeping and are never probed.
const DeviceTypeVirtual = 3

func (s DeviceState) String() string {
	if s == StateUp {
		return "up"
	}

	return "down"
}

// Device is a managed network element.
type Device struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Type          int         `json:"device_type"`
	MAC           string      `json:"mac,omitempty"`
	Host          string      `json:"host,omitempty"`
	Enabled       bool        `json:"enable"`
	State         DeviceState `json:"state"`
	AvgLatency    float64     `json:"avg"`
	LossRate      float64     `json:"loss"`
	LastProbeTime *time.Time  `json:"last_time,omitempty"`
}

// Port is an interface of a Device. Its state mirrors the owning device's probed state.
type Port struct {
	ID       int64       `json:"id"`
	DeviceID int64       `json:"device_id"`
	Name     string      `json:"name"`
	State    DeviceState `json:"state"`
}

// Target is a probe endpoint attached to a Device.
type Target struct {
	ID            int64       `json:"id"`
	DeviceID      int64       `json:"device_id"`
	IP            string      `json:"ip"`
	State         DeviceState `json:"state"`
	AvgLatency    float64     `json:"avg"`
	LossRate      float64     `json:"loss"`
	LastProbeTime *time.Time  `json:"last_time,omitempty"`
}

// ProbeTarget is the scheduler's view of a device eligible for probing.
type ProbeTarget struct {
	DeviceID      int64       `json:"device_id"`
	Host          string      `json:"host"`
	PreviousState DeviceState `json:"previous_state"`
}

// StationState is a reachability observation extracted from a syslog line.
// Either MAC or IP identifies the device; IP may be empty.
type StationState struct {
	MAC   string      `json:"mac"`
	IP    string      `json:"ip,omitempty"`
	State DeviceState `json:"state"`
}
