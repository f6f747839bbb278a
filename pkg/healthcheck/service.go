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

package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/lifecycle"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/natsutil"
	"github.com/carverauto/healthchecker/pkg/probe"
	"github.com/carverauto/healthchecker/pkg/syslog"
	"github.com/carverauto/healthchecker/pkg/trap"
)

var (
	ErrServiceStarted = errors.New("healthcheck service already started")
	errNilConfig      = errors.New("config is required")
)

// Option customizes how a Service builds its collaborators.
type Option func(*Service)

// WithStore uses store instead of opening one from the database config. The
// service still closes it on Stop.
func WithStore(store db.Service) Option {
	return func(s *Service) { s.store = store }
}

// WithHostname overrides the manager identity stamped on notifications.
func WithHostname(fn func() (string, error)) Option {
	return func(s *Service) { s.hostname = fn }
}

// WithSink adds a notification sink next to the log sink.
func WithSink(sink trap.Sink) Option {
	return func(s *Service) { s.sinks = append(s.sinks, sink) }
}

// Service runs the probe scheduler, trap receiver and syslog reactor over a
// shared store. Start order is store, sinks, trap, probe, syslog; Stop runs
// the reverse of the periodic and listening parts before closing the store.
type Service struct {
	cfg      *Config
	logger   logger.Logger
	hostname func() (string, error)
	sinks    []trap.Sink

	mu        sync.Mutex
	started   bool
	store     db.Service
	publisher *natsutil.Publisher
	receiver  *trap.Receiver
	scheduler *probe.Scheduler
	syslog    *syslog.Service
}

func NewService(cfg *Config, log logger.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errNilConfig
	}

	s := &Service{
		cfg:      cfg,
		logger:   lifecycle.ComponentOf(log, "healthcheck"),
		hostname: os.Hostname,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start brings every domain up. On failure, whatever already started is
// stopped again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrServiceStarted
	}

	// shutdown is driven by Stop, not by cancellation of the start context
	runCtx := context.WithoutCancel(ctx)

	if err := s.start(ctx, runCtx); err != nil {
		if stopErr := s.stopLocked(ctx); stopErr != nil {
			s.logger.Warn().Err(stopErr).Msg("cleanup after failed start")
		}

		return err
	}

	s.started = true

	return nil
}

func (s *Service) start(ctx, runCtx context.Context) error {
	cfg := s.cfg

	if s.store == nil {
		store, err := db.New(ctx, &cfg.Database, lifecycle.ComponentOf(s.logger, "db"))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		s.store = store
	}

	if err := s.startTrap(ctx, runCtx); err != nil {
		return err
	}

	if err := s.startProbe(runCtx); err != nil {
		return err
	}

	return s.startSyslog(runCtx)
}

func (s *Service) startTrap(ctx, runCtx context.Context) error {
	cfg := s.cfg
	log := lifecycle.ComponentOf(s.logger, "trap")

	handlers, err := trap.NewHandlerTable(cfg.Handlers)
	if err != nil {
		return err
	}

	sinks := append(trap.MultiSink{trap.NewLogSink(log)}, s.sinks...)

	if cfg.NATS != nil && cfg.NATS.URL != "" {
		pub, err := natsutil.Connect(ctx, *cfg.NATS, lifecycle.ComponentOf(s.logger, "nats"))
		if err != nil {
			return fmt.Errorf("connect notification publisher: %w", err)
		}

		s.publisher = pub
		sinks = append(sinks, pub)
	}

	manager, err := s.hostname()
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not resolve hostname, notifications carry no manager")
	}

	processor, err := trap.NewProcessor(trap.ProcessorConfig{
		Community: cfg.Community,
		Manager:   manager,
	}, handlers, sinks, log)
	if err != nil {
		return err
	}

	s.receiver = trap.NewReceiver(trap.ReceiverConfig{
		Port:  cfg.TrapPort,
		Bind4: cfg.TrapBind,
		Bind6: cfg.TrapBind6,
		IPv6:  cfg.IPv6,
	}, processor, log)

	return s.receiver.Start(runCtx)
}

func (s *Service) startProbe(runCtx context.Context) error {
	cfg := s.cfg
	log := lifecycle.ComponentOf(s.logger, "probe")

	executor, err := probe.NewCommandExecutor(cfg.ProbeCommand, cfg.FpingCount, cfg.ProbeTimeout.Std(), log)
	if err != nil {
		return err
	}

	var liveness probe.LivenessChecker = probe.AlwaysConnected{}
	if cfg.LivenessURL != "" {
		liveness = probe.NewHTTPLivenessChecker(cfg.LivenessURL, cfg.LivenessTimeout.Std(), log)
	}

	s.scheduler, err = probe.NewScheduler(probe.SchedulerConfig{
		Interval:     cfg.Interval(),
		Concurrency:  cfg.ProcessCount,
		MaxInstances: cfg.MaxInstances,
	}, s.store, executor, liveness, nil, log)
	if err != nil {
		return err
	}

	return s.scheduler.Start(runCtx)
}

func (s *Service) startSyslog(runCtx context.Context) error {
	cfg := s.cfg

	replayStart, err := cfg.ReplayStart()
	if err != nil {
		return err
	}

	s.syslog, err = syslog.NewService(syslog.Config{
		Host:         cfg.SyslogHost,
		Port:         cfg.SyslogPort,
		Workers:      cfg.SyslogWorkers,
		QueueSize:    cfg.SyslogQueue,
		ReadSize:     cfg.SyslogReadSize,
		ReplayStart:  replayStart,
		ReplayWindow: cfg.RedoWindow.Std(),
	}, s.store, lifecycle.ComponentOf(s.logger, "syslog"))
	if err != nil {
		return err
	}

	return s.syslog.Start(runCtx)
}

// TrapAddrs lists the bound trap sockets.
func (s *Service) TrapAddrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.receiver == nil {
		return nil
	}

	return s.receiver.Addrs()
}

// SyslogAddr is the syslog listener address.
func (s *Service) SyslogAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syslog == nil {
		return nil
	}

	return s.syslog.Addr()
}

// Stop halts periodic probing, closes the listeners, drains the worker pools
// and finally closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.started = false

	return s.stopLocked(ctx)
}

func (s *Service) stopLocked(ctx context.Context) error {
	var errs []error

	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop probe scheduler: %w", err))
		}

		s.scheduler = nil
	}

	if s.syslog != nil {
		if err := s.syslog.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop syslog: %w", err))
		}

		s.syslog = nil
	}

	if s.receiver != nil {
		if err := s.receiver.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop trap receiver: %w", err))
		}

		s.receiver = nil
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notification publisher: %w", err))
		}

		s.publisher = nil
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}

		s.store = nil
	}

	s.logger.Info().Msg("healthcheck service stopped")

	return errors.Join(errs...)
}
