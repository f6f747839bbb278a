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

package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func DefaultConfig() *Config {
	return &Config{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("DEBUG", false),
		Output:     getEnvOrDefault("LOG_OUTPUT", "stdout"),
		TimeFormat: getEnvOrDefault("LOG_TIME_FORMAT", ""),
	}
}

// levelLadder orders levels from most to least verbose.
var levelLadder = []zerolog.Level{
	zerolog.TraceLevel,
	zerolog.DebugLevel,
	zerolog.InfoLevel,
	zerolog.WarnLevel,
	zerolog.ErrorLevel,
	zerolog.FatalLevel,
	zerolog.PanicLevel,
}

// AdjustLevel moves base one step towards trace for every verbose flag and one
// step towards panic for every quiet flag. The result is clamped to the ladder.
func AdjustLevel(base zerolog.Level, verbose, quiet int) zerolog.Level {
	idx := 2

	for i, l := range levelLadder {
		if l == base {
			idx = i
			break
		}
	}

	idx += quiet - verbose

	if idx < 0 {
		idx = 0
	}

	if idx >= len(levelLadder) {
		idx = len(levelLadder) - 1
	}

	return levelLadder[idx]
}

// ApplyVerbosity rewrites c.Level according to the -v/-q counters.
func (c *Config) ApplyVerbosity(verbose, quiet int) error {
	if verbose == 0 && quiet == 0 {
		return nil
	}

	base, err := c.ParsedLevel()
	if err != nil {
		return err
	}

	c.Debug = false
	c.Level = AdjustLevel(base, verbose, quiet).String()

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}
