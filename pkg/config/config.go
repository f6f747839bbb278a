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

// Package config loads service configuration from files and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carverauto/healthchecker/pkg/logger"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	errInvalidConfigPtr    = errors.New("config must be a non-nil pointer")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	// DefaultEnvPrefix prefixes every environment override.
	DefaultEnvPrefix = "HEALTHCHECKER_"
)

// ConfigLoader fills dst from some source.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configurations that can check themselves.
type Validator interface {
	Validate() error
}

// Defaulter is implemented by configurations that fill unset fields after loading.
type Defaulter interface {
	ApplyDefaults()
}

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	envLoader     *EnvConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a new Config instance with a default file loader and logger.
// If logger is nil, a warn-level stderr logger is used.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = createBasicLogger()
	}

	return &Config{
		defaultLoader: &FileConfigLoader{logger: log},
		envLoader:     NewEnvConfigLoader(log, envPrefix()),
		logger:        log,
	}
}

func envPrefix() string {
	if prefix := os.Getenv("CONFIG_ENV_PREFIX"); prefix != "" {
		return prefix
	}

	return DefaultEnvPrefix
}

// basicLogger is used for config loading before the real logger exists.
type basicLogger struct {
	logger zerolog.Logger
}

func createBasicLogger() logger.Logger {
	zlog := zerolog.New(os.Stderr).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	return &basicLogger{logger: zlog}
}

func (b *basicLogger) Trace() *zerolog.Event { return b.logger.Trace() }
func (b *basicLogger) Debug() *zerolog.Event { return b.logger.Debug() }
func (b *basicLogger) Info() *zerolog.Event  { return b.logger.Info() }
func (b *basicLogger) Warn() *zerolog.Event  { return b.logger.Warn() }
func (b *basicLogger) Error() *zerolog.Event { return b.logger.Error() }
func (b *basicLogger) Fatal() *zerolog.Event { return b.logger.Fatal() }
func (b *basicLogger) Panic() *zerolog.Event { return b.logger.Panic() }
func (b *basicLogger) With() zerolog.Context { return b.logger.With() }

func (b *basicLogger) WithComponent(component string) zerolog.Logger {
	return b.logger.With().Str("component", component).Logger()
}

func (b *basicLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return b.logger.With().Fields(fields).Logger()
}

func (b *basicLogger) SetLevel(level zerolog.Level) {
	b.logger = b.logger.Level(level)
}

func (b *basicLogger) SetDebug(debug bool) {
	if debug {
		b.SetLevel(zerolog.DebugLevel)
	} else {
		b.SetLevel(zerolog.InfoLevel)
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads cfg, applies environment overrides and defaults, then
// validates it.
//
// CONFIG_SOURCE=file (the default) reads path and overlays variables named
// <prefix><JSON_FIELD>; CONFIG_SOURCE=env skips the file entirely.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errInvalidConfigPtr
	}

	source := strings.ToLower(os.Getenv("CONFIG_SOURCE"))

	switch source {
	case configSourceFile, "":
		if err := c.defaultLoader.Load(ctx, path, cfg); err != nil {
			return err
		}

		if err := c.envLoader.Overlay(cfg); err != nil {
			return err
		}
	case configSourceEnv:
		if err := c.envLoader.Load(ctx, path, cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}

	return ValidateConfig(cfg)
}
