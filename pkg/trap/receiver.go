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

package trap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/carverauto/healthchecker/pkg/logger"
)

const (
	DefaultPort  = 162
	DefaultBind4 = "0.0.0.0"
	DefaultBind6 = "::1"

	maxDatagram = 65535

	readRetryMin = 5 * time.Millisecond
	readRetryMax = time.Second
)

// datagramConn is the subset of *net.UDPConn the read loop uses.
type datagramConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	LocalAddr() net.Addr
}

// newReadBackoff paces retries after consecutive read errors: doubling from
// min up to max, without jitter.
func newReadBackoff(minDelay, maxDelay time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = minDelay
	bo.MaxInterval = maxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	return bo
}

// Dispatcher consumes raw datagrams. *Processor implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload []byte, addr *net.UDPAddr)
}

// ReceiverConfig selects the sockets the receiver binds.
type ReceiverConfig struct {
	Port  int
	Bind4 string
	Bind6 string
	IPv6  bool
}

// Receiver reads datagrams from one UDP socket per address family and hands
// each to the dispatcher synchronously.
type Receiver struct {
	cfg        ReceiverConfig
	dispatcher Dispatcher
	logger     logger.Logger

	mu      sync.Mutex
	conns   []*net.UDPConn
	done    chan struct{}
	started bool
	wg      sync.WaitGroup
}

func NewReceiver(cfg ReceiverConfig, dispatcher Dispatcher, log logger.Logger) *Receiver {
	if cfg.Bind4 == "" {
		cfg.Bind4 = DefaultBind4
	}

	if cfg.Bind6 == "" {
		cfg.Bind6 = DefaultBind6
	}

	return &Receiver{cfg: cfg, dispatcher: dispatcher, logger: log}
}

// Start binds the sockets and starts one read loop per socket. Port 0 binds
// an ephemeral port; see Addrs.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrReceiverStarted
	}

	binds := []struct{ network, host string }{{"udp4", r.cfg.Bind4}}
	if r.cfg.IPv6 {
		binds = append(binds, struct{ network, host string }{"udp6", r.cfg.Bind6})
	}

	conns := make([]*net.UDPConn, 0, len(binds))

	for _, b := range binds {
		addr, err := net.ResolveUDPAddr(b.network, net.JoinHostPort(b.host, strconv.Itoa(r.cfg.Port)))
		if err != nil {
			closeAll(conns)
			return fmt.Errorf("resolve trap address %s: %w", b.host, err)
		}

		conn, err := net.ListenUDP(b.network, addr)
		if err != nil {
			closeAll(conns)
			return fmt.Errorf("listen for traps on %s: %w", addr, err)
		}

		conns = append(conns, conn)
	}

	r.conns = conns
	r.done = make(chan struct{})
	r.started = true

	for _, conn := range conns {
		r.logger.Info().Str("addr", conn.LocalAddr().String()).Msg("trap receiver listening")

		r.wg.Add(1)

		go r.readLoop(ctx, conn, r.done)
	}

	return nil
}

func (r *Receiver) readLoop(ctx context.Context, conn datagramConn, done <-chan struct{}) {
	defer r.wg.Done()

	buf := make([]byte, maxDatagram)
	retry := newReadBackoff(readRetryMin, readRetryMax)

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}

			delay := retry.NextBackOff()

			r.logger.Warn().Err(err).
				Str("addr", conn.LocalAddr().String()).
				Dur("retry_in", delay).
				Msg("trap read failed")

			if !sleepOrDone(ctx, done, delay) {
				return
			}

			continue
		}

		retry.Reset()

		r.dispatcher.Dispatch(ctx, buf[:n], addr)
	}
}

// sleepOrDone waits for d and reports false if the loop should exit instead.
func sleepOrDone(ctx context.Context, done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Addrs returns the bound socket addresses.
func (r *Receiver) Addrs() []net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs := make([]net.Addr, 0, len(r.conns))
	for _, c := range r.conns {
		addrs = append(addrs, c.LocalAddr())
	}

	return addrs
}

// Stop closes the sockets and waits for the read loops to return.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = nil
	r.started = false

	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	r.mu.Unlock()

	err := closeAll(conns)

	r.wg.Wait()

	r.logger.Info().Msg("trap receiver stopped")

	return err
}

func closeAll(conns []*net.UDPConn) error {
	var errs []error

	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
