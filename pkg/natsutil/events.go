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

// Package natsutil publishes trap notifications to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

const (
	DefaultStream  = "HEALTHCHECKER"
	DefaultSubject = "healthchecker.traps"

	TrapEventType = "com.carverauto.healthchecker.trap"
	eventSource   = "healthchecker/trap"

	// DefaultPublishTimeout bounds the wait for a stream ack. Deliver runs on
	// the trap read loop, so it must fail fast while NATS is unreachable.
	DefaultPublishTimeout = 2 * time.Second
)

var (
	errURLRequired = errors.New("nats url is required")

	// ErrNotConnected is returned by Deliver while the connection is down or
	// reconnecting.
	ErrNotConnected = errors.New("nats connection is not established")
)

// Config selects the JetStream stream trap notifications are published to.
type Config struct {
	URL     string     `json:"url" yaml:"url"`
	Stream  string     `json:"stream,omitempty" yaml:"stream,omitempty"`
	Subject string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Domain  string     `json:"domain,omitempty" yaml:"domain,omitempty"`
	TLS     *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`

	PublishTimeout models.Duration `json:"publish_timeout,omitempty" yaml:"publish_timeout,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.Stream == "" {
		c.Stream = DefaultStream
	}

	if c.Subject == "" {
		c.Subject = DefaultSubject
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = models.Duration(DefaultPublishTimeout)
	}
}

// Publisher delivers notifications as CloudEvents to <subject>.<severity>.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	stream  string
	subject string
	timeout time.Duration
	logger  logger.Logger
}

// Connect dials NATS and makes sure the stream exists.
func Connect(ctx context.Context, cfg Config, log logger.Logger, extraOpts ...nats.Option) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errURLRequired
	}

	cfg.applyDefaults()

	opts := []nats.Option{
		nats.Name("healthchecker"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.TLS != nil {
		tlsConf, err := ClientTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := NewPublisher(ctx, nc, cfg, log)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return p, nil
}

// NewPublisher creates a Publisher on an existing connection. Close on the
// returned publisher closes nc.
func NewPublisher(ctx context.Context, nc *nats.Conn, cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.applyDefaults()

	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{
		nc:      nc,
		js:      js,
		stream:  cfg.Stream,
		subject: cfg.Subject,
		timeout: cfg.PublishTimeout.Std(),
		logger:  log,
	}

	if err := p.ensureStream(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	want := p.subject + ".>"

	stream, err := p.js.Stream(ctx, p.stream)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", p.stream, err)
		}

		_, err = p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     p.stream,
			Subjects: []string{want},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", p.stream, err)
		}

		p.logger.Info().Str("stream", p.stream).Str("subjects", want).Msg("created NATS JetStream stream")

		return nil
	}

	cfg := stream.CachedInfo().Config

	subjects := ensureSubjectList(append([]string(nil), cfg.Subjects...), want)
	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := p.js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", want, p.stream, err)
	}

	p.logger.Info().Str("stream", p.stream).Strs("subjects", subjects).Msg("updated NATS JetStream stream subjects")

	return nil
}

// Subject returns the subject a notification of the given severity goes to.
func (p *Publisher) Subject(severity string) string {
	if severity == "" {
		severity = "unknown"
	}

	return p.subject + "." + severity
}

// Deliver publishes n as a CloudEvent and waits for the stream ack, at most
// the publish timeout. It fails immediately while disconnected.
func (p *Publisher) Deliver(ctx context.Context, n *models.Notification, _ models.HandlerRule) error {
	if status := p.nc.Status(); status != nats.CONNECTED {
		return fmt.Errorf("%w: %s", ErrNotConnected, status)
	}

	sent := n.Sent
	if sent.IsZero() {
		sent = time.Now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            TrapEventType,
		DataContentType: "application/json",
		Subject:         p.Subject(n.Severity),
		Time:            &sent,
		Data:            n,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trap event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish trap event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("published trap event")

	return nil
}

// Close drains the connection so pending publishes complete.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}

	return p.nc.Drain()
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless an existing pattern already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if matchesSubject(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern covers subject using NATS token
// wildcards. A literal ">" in subject only matches ">" in pattern.
func matchesSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) || st[i] == ">" {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
