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
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

// Outcome is what happened to one received datagram.
type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeBlackholed
	OutcomeDelivered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDropped:
		return "dropped"
	case OutcomeBlackholed:
		return "blackholed"
	case OutcomeDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ProcessorConfig holds the per-receiver trap settings.
type ProcessorConfig struct {
	// Community, when set, must match the message community exactly.
	Community string
	// Manager identifies this receiver on every notification.
	Manager string
}

// Processor runs a datagram through version check, decode, authorization,
// classification and enrichment, then blackholes it or hands it to the sink.
type Processor struct {
	cfg      ProcessorConfig
	handlers HandlerTable
	sink     Sink
	decoder  *gosnmp.GoSNMP
	now      func() time.Time
	logger   logger.Logger
}

func NewProcessor(cfg ProcessorConfig, handlers HandlerTable, sink Sink, log logger.Logger) (*Processor, error) {
	if sink == nil {
		return nil, errNilSink
	}

	return &Processor{
		cfg:      cfg,
		handlers: handlers,
		sink:     sink,
		decoder: &gosnmp.GoSNMP{
			Version: gosnmp.Version2c,
			Logger:  gosnmp.NewLogger(snmpLogger{logger: log}),
		},
		now:    time.Now,
		logger: log,
	}, nil
}

// Process handles one datagram. Every drop is reported as an error wrapping
// one of the package sentinels.
func (p *Processor) Process(ctx context.Context, payload []byte, addr *net.UDPAddr) (Outcome, error) {
	version, err := MessageVersion(payload)
	if err != nil {
		return OutcomeDropped, err
	}

	if version != gosnmp.Version1 && version != gosnmp.Version2c {
		return OutcomeDropped, fmt.Errorf("%w: %s", ErrUnsupportedVersion, VersionName(version))
	}

	pkt, err := p.decoder.UnmarshalTrap(payload, false)
	if err != nil {
		return OutcomeDropped, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if p.cfg.Community != "" && pkt.Community != p.cfg.Community {
		return OutcomeDropped, ErrCommunityMismatch
	}

	if pkt.PDUType != gosnmp.Trap && pkt.PDUType != gosnmp.SNMPv2Trap {
		return OutcomeDropped, fmt.Errorf("%w: %s", ErrNotTrap, pkt.PDUType)
	}

	n, err := Classify(hostOf(addr), pkt, p.now())
	if err != nil {
		return OutcomeDropped, err
	}

	rule, ok := p.handlers.Lookup(n.OID)
	if !ok {
		return OutcomeDropped, fmt.Errorf("%w: %s", ErrNoHandler, n.OID)
	}

	if err := p.enrich(n, rule); err != nil {
		return OutcomeDropped, err
	}

	if rule.Blackhole {
		return OutcomeBlackholed, nil
	}

	if err := p.sink.Deliver(ctx, n, rule); err != nil {
		return OutcomeDropped, fmt.Errorf("deliver trap %s: %w", n.OID, err)
	}

	return OutcomeDelivered, nil
}

func (p *Processor) enrich(n *models.Notification, rule models.HandlerRule) error {
	n.Severity = rule.Severity
	n.Manager = p.cfg.Manager

	exp, err := ParseExpiration(rule.Expiration)
	if err != nil {
		return err
	}

	if !exp.IsZero() {
		expires := n.Sent.Add(exp.Duration())
		n.Expires = &expires
	}

	return nil
}

// Dispatch is the listener boundary: it never panics and turns every failure
// into a log record.
func (p *Processor) Dispatch(ctx context.Context, payload []byte, addr *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Str("host", hostOf(addr)).Msg("trap processing panicked")
		}
	}()

	outcome, err := p.Process(ctx, payload, addr)
	if err == nil {
		p.logger.Debug().Str("host", hostOf(addr)).Stringer("outcome", outcome).Msg("trap processed")
		return
	}

	var event *zerolog.Event

	switch {
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMalformedMessage),
		errors.Is(err, ErrUnsupportedVersion),
		errors.Is(err, ErrCommunityMismatch):
		event = p.logger.Debug()
	case errors.Is(err, ErrNotTrap),
		errors.Is(err, ErrMissingTrapOID),
		errors.Is(err, errInvalidTrapOIDValue),
		errors.Is(err, ErrUnknownGenericTrap),
		errors.Is(err, ErrUnsupportedVarBind):
		event = p.logger.Warn()
	default:
		event = p.logger.Error()
	}

	event.Err(err).Str("host", hostOf(addr)).Msg("trap dropped")
}

func hostOf(addr *net.UDPAddr) string {
	if addr == nil {
		return ""
	}

	return addr.IP.String()
}

// snmpLogger routes gosnmp's decoder chatter to trace level.
type snmpLogger struct {
	logger logger.Logger
}

func (l snmpLogger) Print(v ...interface{}) {
	l.logger.Trace().Msg(fmt.Sprint(v...))
}

func (l snmpLogger) Printf(format string, v ...interface{}) {
	l.logger.Trace().Msgf(format, v...)
}
