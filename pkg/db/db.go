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

package db

import (
	"context"
	"fmt"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the database connection parameters.
type Config struct {
	Driver           string            `json:"driver" yaml:"driver"`
	Host             string            `json:"host" yaml:"host"`
	Port             int               `json:"port" yaml:"port"`
	Database         string            `json:"name" yaml:"name"`
	Username         string            `json:"user" yaml:"user"`
	Password         string            `json:"password" yaml:"password"`
	SSLMode          string            `json:"ssl_mode" yaml:"ssl_mode"`
	ApplicationName  string            `json:"application_name" yaml:"application_name"`
	MaxConnections   int32             `json:"max_conns" yaml:"max_conns"`
	MinConnections   int32             `json:"min_conns" yaml:"min_conns"`
	MaxConnLifetime  models.Duration   `json:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	StatementTimeout models.Duration   `json:"statement_timeout" yaml:"statement_timeout"`
	RuntimeParams    map[string]string `json:"runtime_params" yaml:"runtime_params"`

	// Path is the database file for the sqlite driver.
	Path string `json:"path" yaml:"path"`
}

// Validate checks that the selected driver has what it needs.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, "":
		return nil
	case DriverSQLite:
		if c.Path == "" {
			return ErrSQLitePathRequired
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// New opens the configured store and brings its schema up to date.
func New(ctx context.Context, cfg *Config, log logger.Logger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverSQLite:
		return NewSQLiteStore(ctx, cfg.Path, log)
	default:
		pool, err := NewPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}

		if err := RunPostgresMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}

		return NewPostgresStore(pool, log), nil
	}
}
