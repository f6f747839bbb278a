//go:build !linux

package syslog

import (
	"net"

	"github.com/carverauto/healthchecker/pkg/logger"
)

// Reactor is unavailable without epoll; every operation fails.
type Reactor struct {
	cfg ReactorConfig
}

func NewReactor(cfg ReactorConfig, _ MessageHandler, _ logger.Logger) *Reactor {
	cfg.applyDefaults()

	return &Reactor{cfg: cfg}
}

func (*Reactor) Listen() error { return ErrReactorUnsupported }

func (*Reactor) Addr() net.Addr { return nil }

func (*Reactor) Run() error { return ErrReactorUnsupported }

func (*Reactor) Stop() error { return nil }
