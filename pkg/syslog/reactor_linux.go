//go:build linux

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
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sys/unix"

	"github.com/carverauto/healthchecker/pkg/logger"
)

const (
	readInterest  = unix.EPOLLIN | unix.EPOLLRDHUP
	closeInterest = unix.EPOLLHUP | unix.EPOLLRDHUP | unix.EPOLLERR

	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// Reactor is a single-threaded epoll loop over one listening socket and its
// accepted connections. Each readiness event on a connection performs exactly
// one read of at most ReadSize bytes, and that read is one message.
type Reactor struct {
	cfg     ReactorConfig
	handler MessageHandler
	logger  logger.Logger

	mu        sync.Mutex
	listening bool
	running   bool
	stopped   bool
	done      chan struct{}

	epfd     int
	listenFd int
	wakeFd   int
	peers    map[int]string

	// set while the listener is out of the epoll set after a failed accept;
	// owned by the Run goroutine
	acceptRetry  *backoff.ExponentialBackOff
	acceptDelay  time.Duration
	acceptResume time.Time
}

func NewReactor(cfg ReactorConfig, handler MessageHandler, log logger.Logger) *Reactor {
	cfg.applyDefaults()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = acceptRetryMin
	retry.MaxInterval = acceptRetryMax
	retry.Multiplier = 2
	retry.RandomizationFactor = 0
	retry.Reset()

	return &Reactor{
		cfg:         cfg,
		handler:     handler,
		logger:      log,
		done:        make(chan struct{}),
		epfd:        -1,
		listenFd:    -1,
		wakeFd:      -1,
		peers:       make(map[int]string),
		acceptRetry: retry,
	}
}

// Listen opens the non-blocking listening socket and the epoll instance.
func (r *Reactor) Listen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listening || r.stopped {
		return ErrReactorRunning
	}

	ip := net.ParseIP(r.cfg.Host)
	if ip == nil {
		return fmt.Errorf("%w: %q", ErrInvalidListenHost, r.cfg.Host)
	}

	family, sa := sockaddr(ip, r.cfg.Port)

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return fmt.Errorf("syslog socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("syslog SO_REUSEADDR: %w", err)
	}

	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("syslog bind %s: %w", net.JoinHostPort(r.cfg.Host, fmt.Sprint(r.cfg.Port)), err)
	}

	if err := unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("syslog listen: %w", err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("epoll create: %w", err)
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(fd)

		return fmt.Errorf("eventfd: %w", err)
	}

	for _, watched := range []int{fd, wakeFd} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(watched)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, watched, &ev); err != nil {
			_ = unix.Close(wakeFd)
			_ = unix.Close(epfd)
			_ = unix.Close(fd)

			return fmt.Errorf("epoll add: %w", err)
		}
	}

	r.listenFd, r.epfd, r.wakeFd = fd, epfd, wakeFd
	r.listening = true

	r.logger.Info().Stringer("addr", r.addrLocked()).Msg("syslog listener ready")

	return nil
}

func sockaddr(ip net.IP, port int) (int, unix.Sockaddr) {
	if v4 := ip.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)

		return unix.AF_INET, sa
	}

	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())

	return unix.AF_INET6, sa
}

// Addr returns the bound listener address, or nil before Listen.
func (r *Reactor) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addrLocked()
}

func (r *Reactor) addrLocked() net.Addr {
	if !r.listening {
		return nil
	}

	sa, err := unix.Getsockname(r.listenFd)
	if err != nil {
		return nil
	}

	if addr := tcpAddr(sa); addr != nil {
		return addr
	}

	return nil
}

func tcpAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]).To16(), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// Run drives the event loop on a locked OS thread until Stop.
func (r *Reactor) Run() error {
	r.mu.Lock()
	if !r.listening || r.stopped {
		r.mu.Unlock()
		return ErrReactorNotListening
	}

	if r.running {
		r.mu.Unlock()
		return ErrReactorRunning
	}

	r.running = true
	r.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer close(r.done)
	defer r.closeAll()

	events := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, r.cfg.ReadSize)

	for {
		n, err := unix.EpollWait(r.epfd, events, r.waitTimeout(time.Now()))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}

			return fmt.Errorf("epoll wait: %w", err)
		}

		r.resumeAccept(time.Now())

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			mask := events[i].Events

			switch fd {
			case r.wakeFd:
				return nil
			case r.listenFd:
				r.acceptAll()
			default:
				r.serve(fd, mask, buf)
			}
		}
	}
}

func (r *Reactor) acceptAll() {
	for {
		nfd, sa, err := unix.Accept4(r.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ECONNABORTED) {
				return
			}

			// EMFILE and friends leave the listener readable; take it out of
			// the epoll set until the retry delay passes
			r.pauseAccept(time.Now(), err)

			return
		}

		if r.acceptDelay != 0 {
			r.acceptDelay = 0
			r.acceptRetry.Reset()
		}

		peer := "unknown"
		if addr := tcpAddr(sa); addr != nil {
			peer = addr.String()
		}

		ev := unix.EpollEvent{Events: readInterest, Fd: int32(nfd)}
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, nfd, &ev); err != nil {
			r.logger.Error().Err(err).Str("peer", peer).Msg("failed to register syslog connection")
			_ = unix.Close(nfd)

			continue
		}

		r.peers[nfd] = peer

		r.logger.Debug().Str("peer", peer).Msg("syslog connection accepted")
	}
}

func (r *Reactor) pauseAccept(now time.Time, cause error) {
	r.acceptDelay = r.acceptRetry.NextBackOff()
	r.acceptResume = now.Add(r.acceptDelay)

	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, r.listenFd, nil); err != nil {
		r.logger.Warn().Err(err).Msg("failed to pause syslog listener")
	}

	r.logger.Error().Err(cause).Dur("retry_in", r.acceptDelay).Msg("syslog accept failed")
}

func (r *Reactor) resumeAccept(now time.Time) {
	if r.acceptResume.IsZero() || now.Before(r.acceptResume) {
		return
	}

	r.acceptResume = time.Time{}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(r.listenFd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, r.listenFd, &ev); err != nil {
		r.logger.Error().Err(err).Msg("failed to resume syslog listener")
	}
}

// waitTimeout is the epoll wait in milliseconds: forever unless accepts are
// paused, in which case it ends when the listener is due back.
func (r *Reactor) waitTimeout(now time.Time) int {
	if r.acceptResume.IsZero() {
		return -1
	}

	remaining := r.acceptResume.Sub(now)
	if remaining <= 0 {
		return 0
	}

	return int((remaining + time.Millisecond - 1) / time.Millisecond)
}

// serve performs the single read owed to one readiness event.
func (r *Reactor) serve(fd int, mask uint32, buf []byte) {
	if mask&unix.EPOLLIN != 0 {
		n, err := unix.Read(fd, buf)

		switch {
		case err != nil && (errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)):
			return
		case err != nil:
			r.logger.Warn().Err(err).Str("peer", r.peers[fd]).Msg("syslog read failed")
			r.closeConn(fd)

			return
		case n == 0:
			r.closeConn(fd)
			return
		}

		r.dispatch(fd, buf[:n])

		// data and hangup can arrive together; the next wait reports the EOF
		return
	}

	if mask&closeInterest != 0 {
		r.closeConn(fd)
	}
}

func (r *Reactor) dispatch(fd int, msg []byte) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Str("peer", r.peers[fd]).Msg("syslog handler panicked")
		}
	}()

	r.handler(msg)
}

func (r *Reactor) closeConn(fd int) {
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	_ = unix.Close(fd)

	r.logger.Debug().Str("peer", r.peers[fd]).Msg("syslog connection closed")

	delete(r.peers, fd)
}

func (r *Reactor) closeAll() {
	for fd := range r.peers {
		_ = unix.Close(fd)
		delete(r.peers, fd)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeFdsLocked()
}

func (r *Reactor) closeFdsLocked() {
	for _, fd := range []*int{&r.listenFd, &r.wakeFd, &r.epfd} {
		if *fd >= 0 {
			_ = unix.Close(*fd)
			*fd = -1
		}
	}

	r.listening = false
	r.stopped = true
}

// Stop wakes the loop, waits for it to close every socket and returns.
func (r *Reactor) Stop() error {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()
		return nil
	}

	if !r.running {
		r.closeFdsLocked()
		r.mu.Unlock()

		return nil
	}

	var one [8]byte
	one[7] = 1 // eventfd counters are host-endian; any non-zero value wakes epoll

	_, err := unix.Write(r.wakeFd, one[:])
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("wake syslog reactor: %w", err)
	}

	<-r.done

	r.logger.Info().Msg("syslog reactor stopped")

	return nil
}
