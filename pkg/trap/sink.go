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

// Package trap receives SNMP v1/v2c traps, classifies them against the
// configured handler rules and hands the survivors to a Sink.
package trap

//go:generate mockgen -destination=mock_sink.go -package=trap github.com/carverauto/healthchecker/pkg/trap Sink

import (
	"context"
	"errors"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

// Sink receives every notification that was not blackholed.
type Sink interface {
	Deliver(ctx context.Context, n *models.Notification, rule models.HandlerRule) error
}

// LogSink records notifications as structured log lines.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Deliver(_ context.Context, n *models.Notification, _ models.HandlerRule) error {
	event := s.logger.Info().
		Str("host", n.Host).
		Str("manager", n.Manager).
		Str("version", n.Version).
		Str("oid", n.OID).
		Str("severity", n.Severity).
		Time("sent", n.Sent).
		Int("varbinds", len(n.VarBinds))

	if n.Expires != nil {
		event = event.Time("expires", *n.Expires)
	}

	event.Msg("trap received")

	return nil
}

// MultiSink delivers to every sink, even after one of them fails.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, n *models.Notification, rule models.HandlerRule) error {
	var errs []error

	for _, s := range m {
		if err := s.Deliver(ctx, n, rule); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
