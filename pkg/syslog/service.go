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

package syslog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
)

// Config configures the syslog ingestion domain.
type Config struct {
	Host      string
	Port      int
	Workers   int
	QueueSize int
	ReadSize  int

	// ReplayStart enables a catch-up pass over stored lines before listening.
	ReplayStart  *time.Time
	ReplayWindow time.Duration
}

// Service owns the reactor, its offload pool and the optional replay pass.
type Service struct {
	cfg       Config
	offloader *Offloader
	replayer  *Replayer
	reactor   *Reactor
	logger    logger.Logger

	mu      sync.Mutex
	started bool
	runErr  chan error
}

func NewService(cfg Config, store db.Service, log logger.Logger) (*Service, error) {
	offloader, err := NewOffloader(store, cfg.Workers, cfg.QueueSize, log)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		offloader: offloader,
		replayer:  NewReplayer(store, offloader, cfg.ReplayWindow, log),
		logger:    log,
		runErr:    make(chan error, 1),
	}

	s.reactor = NewReactor(ReactorConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		ReadSize: cfg.ReadSize,
	}, s.handle, log)

	return s, nil
}

// handle runs on the reactor thread.
func (s *Service) handle(msg []byte) {
	state, ok := ParseMessage(string(msg))
	if !ok {
		s.logger.Trace().Int("bytes", len(msg)).Msg("syslog line ignored")
		return
	}

	s.offloader.Submit(state)
}

// Start replays stored lines when configured, then opens the listener and
// runs the reactor in the background.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrReactorRunning
	}

	s.offloader.Start(ctx)

	if s.cfg.ReplayStart != nil {
		if _, err := s.replayer.Replay(ctx, *s.cfg.ReplayStart); err != nil {
			_ = s.offloader.Stop(ctx)
			return fmt.Errorf("syslog replay: %w", err)
		}
	}

	if err := s.reactor.Listen(); err != nil {
		_ = s.offloader.Stop(ctx)
		return err
	}

	s.started = true

	go func() {
		err := s.reactor.Run()
		if errors.Is(err, ErrReactorNotListening) {
			// stopped before the loop started
			err = nil
		}

		if err != nil {
			s.logger.Error().Err(err).Msg("syslog reactor exited")
		}

		s.runErr <- err
	}()

	return nil
}

// Addr is the listener address once started.
func (s *Service) Addr() net.Addr {
	return s.reactor.Addr()
}

// Offloader exposes the write queue counters.
func (s *Service) Offloader() *Offloader {
	return s.offloader
}

// Stop closes every socket, then drains queued store writes.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if err := s.reactor.Stop(); err != nil {
		errs = append(errs, err)
	}

	if s.started {
		if err := <-s.runErr; err != nil {
			errs = append(errs, err)
		}

		s.started = false
	}

	if err := s.offloader.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
