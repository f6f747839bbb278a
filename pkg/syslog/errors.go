package syslog

import "errors"

var (
	ErrReactorUnsupported  = errors.New("syslog reactor requires linux epoll")
	ErrReactorNotListening = errors.New("syslog reactor is not listening")
	ErrReactorRunning      = errors.New("syslog reactor already running")
	ErrInvalidListenHost   = errors.New("syslog listen host must be an IP address")
	errNilStore            = errors.New("store is required")
)
