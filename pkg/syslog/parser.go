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

// Package syslog turns wireless controller syslog lines into station state
// updates. Messages arrive over a raw TCP listener driven by an epoll reactor.
package syslog

import (
	"regexp"
	"strings"

	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	apMarker      = " AP "
	apJoinedText  = "成功接入"
	staLeftText   = "断开连接"
	staJoinedText = "成功连接"
)

var (
	// the separator is a fullwidth semicolon
	apPattern     = regexp.MustCompile(`\(IP ([^；)]+)；MAC ([^)]+)\)`)
	staLeftPrefix = regexp.MustCompile(`STA\(MAC ([^)]+)\)` + staLeftText)
	staJoinPrefix = regexp.MustCompile(`STA\(MAC ([^)]+)\)` + staJoinedText)
)

// ParseMessage extracts a station identity and its new state. ok is false
// when the message matches neither grammar unambiguously.
func ParseMessage(msg string) (models.StationState, bool) {
	if strings.Contains(msg, apMarker) {
		return parseAP(msg)
	}

	return parseSTA(msg)
}

func parseAP(msg string) (models.StationState, bool) {
	matches := apPattern.FindAllStringSubmatch(msg, -1)
	if len(matches) != 1 {
		return models.StationState{}, false
	}

	state := models.StationState{
		IP:    strings.TrimSpace(matches[0][1]),
		MAC:   strings.TrimSpace(matches[0][2]),
		State: models.StateDown,
	}

	if strings.Contains(msg, apJoinedText) {
		state.State = models.StateUp
	}

	return state, state.MAC != ""
}

func parseSTA(msg string) (models.StationState, bool) {
	if m := staLeftPrefix.FindAllStringSubmatch(msg, -1); len(m) == 1 {
		return station(m[0][1], models.StateDown)
	}

	if m := staJoinPrefix.FindAllStringSubmatch(msg, -1); len(m) == 1 {
		return station(m[0][1], models.StateUp)
	}

	return models.StationState{}, false
}

func station(mac string, state models.DeviceState) (models.StationState, bool) {
	mac = strings.TrimSpace(mac)

	return models.StationState{MAC: mac, State: state}, mac != ""
}
