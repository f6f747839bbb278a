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
	"net"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

var (
	testAgent = &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 40000}
	testNow   = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
)

func newTestProcessor(t *testing.T, community string, rules map[string]models.HandlerRule) (*Processor, *MockSink) {
	t.Helper()

	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)

	handlers, err := NewHandlerTable(rules)
	require.NoError(t, err)

	p, err := NewProcessor(ProcessorConfig{Community: community, Manager: "nms01"}, handlers, sink, logger.NewTestLogger())
	require.NoError(t, err)

	p.now = func() time.Time { return testNow }

	return p, sink
}

func defaultRules() map[string]models.HandlerRule {
	return map[string]models.HandlerRule{
		linkDownOID:                     {Severity: models.SeverityCritical, Expiration: "1h"},
		"." + linkUpOID:                 {Severity: models.SeverityInformational},
		"1.3.6.1.4.1.9999.0.17":         {Severity: models.SeverityWarning, Expiration: "1d30m"},
		"1.3.6.1.6.3.1.1.5.5":           {Severity: models.SeverityWarning, Blackhole: true},
		"1.3.6.1.4.1.8072.4.0.3":        {Severity: models.SeverityInformational, Blackhole: true},
		"1.3.6.1.4.1.8072.2.3.0.1":      {Severity: models.SeverityWarning},
		"1.3.6.1.4.1.2636.4.1.1.0.99.1": {Severity: models.SeverityCritical, Expiration: "10s"},
	}
}

func TestProcessV2cDelivered(t *testing.T) {
	p, sink := newTestProcessor(t, "public", defaultRules())

	var got *models.Notification

	sink.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *models.Notification, rule models.HandlerRule) error {
			got = n
			assert.Equal(t, models.SeverityCritical, rule.Severity)
			return nil
		})

	outcome, err := p.Process(context.Background(), v2cTrap(t, "public", linkDownOID, ifIndex(7), ifDescr("ge-0/0/7")), testAgent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)

	require.NotNil(t, got)
	assert.Equal(t, "192.0.2.1", got.Host)
	assert.Equal(t, "nms01", got.Manager)
	assert.Equal(t, "v2c", got.Version)
	assert.Equal(t, "public", got.Community)
	assert.Equal(t, linkDownOID, got.OID)
	assert.Equal(t, models.SeverityCritical, got.Severity)
	assert.Equal(t, testNow, got.Sent)
	require.NotNil(t, got.Expires)
	assert.Equal(t, testNow.Add(time.Hour), *got.Expires)

	require.Len(t, got.VarBinds, 2)
	assert.Equal(t, models.VarBind{OID: "1.3.6.1.2.1.2.2.1.1.7", Type: "integer", Value: 7}, got.VarBinds[0])
	assert.Equal(t, models.VarBind{OID: "1.3.6.1.2.1.2.2.1.2.7", Type: "octet", Value: "ge-0/0/7"}, got.VarBinds[1])
}

func TestProcessNoExpiration(t *testing.T) {
	p, sink := newTestProcessor(t, "", defaultRules())

	sink.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *models.Notification, _ models.HandlerRule) error {
			assert.Nil(t, n.Expires)
			assert.Equal(t, linkUpOID, n.OID)
			return nil
		})

	// no community configured accepts anything
	outcome, err := p.Process(context.Background(), v2cTrap(t, "whatever", linkUpOID), testAgent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
}

func TestProcessV1(t *testing.T) {
	tests := []struct {
		name     string
		generic  int
		specific int
		wantOID  string
		wantSev  string
	}{
		{"link down", 2, 0, linkDownOID, models.SeverityCritical},
		{"link up", 3, 0, linkUpOID, models.SeverityInformational},
		{"enterprise specific", 6, 17, "1.3.6.1.4.1.9999.0.17", models.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, sink := newTestProcessor(t, "public", defaultRules())

			sink.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, n *models.Notification, _ models.HandlerRule) error {
					assert.Equal(t, "v1", n.Version)
					assert.Equal(t, tt.wantOID, n.OID)
					assert.Equal(t, tt.wantSev, n.Severity)
					require.Len(t, n.VarBinds, 1)
					assert.Equal(t, "integer", n.VarBinds[0].Type)
					return nil
				})

			outcome, err := p.Process(context.Background(), v1Trap(t, "public", tt.generic, tt.specific, ifIndex(3)), testAgent)
			require.NoError(t, err)
			assert.Equal(t, OutcomeDelivered, outcome)
		})
	}
}

func TestProcessEnterpriseSpecificExpiry(t *testing.T) {
	p, sink := newTestProcessor(t, "public", defaultRules())

	sink.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *models.Notification, _ models.HandlerRule) error {
			require.NotNil(t, n.Expires)
			assert.Equal(t, testNow.Add(24*time.Hour+30*time.Minute), *n.Expires)
			return nil
		})

	_, err := p.Process(context.Background(), v1Trap(t, "public", 6, 17), testAgent)
	require.NoError(t, err)
}

func TestProcessBlackholeHasNoSideEffects(t *testing.T) {
	p, _ := newTestProcessor(t, "public", defaultRules())

	// the mock fails the test on any Deliver call
	outcome, err := p.Process(context.Background(), v1Trap(t, "public", 4, 0), testAgent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlackholed, outcome)

	outcome, err = p.Process(context.Background(), v2cTrap(t, "public", "1.3.6.1.4.1.8072.4.0.3"), testAgent)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlackholed, outcome)
}

func TestProcessDrops(t *testing.T) {
	getRequest := marshal(t, &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: "public",
		PDUType:   gosnmp.GetRequest,
		RequestID: 7,
		Variables: []gosnmp.SnmpPDU{{Name: ".1.3.6.1.2.1.1.1.0", Type: gosnmp.Null}},
	})

	inform := v2cPacket("public", linkDownOID)
	inform.PDUType = gosnmp.InformRequest

	missingTrapOID := marshal(t, &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: "public",
		PDUType:   gosnmp.SNMPv2Trap,
		Variables: []gosnmp.SnmpPDU{{Name: "." + sysUpTimeOID, Type: gosnmp.TimeTicks, Value: uint32(5)}},
	})

	headerOnly := []byte{0x30, 0x0b, 0x02, 0x01, 0x01, 0x04, 0x06, 'p', 'u', 'b', 'l', 'i', 'c'}

	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"empty", nil, ErrEmptyMessage},
		{"garbage", []byte("hello world"), ErrMalformedMessage},
		{"v3 message", []byte{0x30, 0x03, 0x02, 0x01, 0x03}, ErrUnsupportedVersion},
		{"missing pdu", headerOnly, ErrMalformedMessage},
		{"community mismatch", v2cTrap(t, "private", linkDownOID), ErrCommunityMismatch},
		{"v1 community mismatch", v1Trap(t, "private", 2, 0), ErrCommunityMismatch},
		{"get request", getRequest, ErrNotTrap},
		{"inform", marshal(t, inform), ErrNotTrap},
		{"missing trap oid", missingTrapOID, ErrMissingTrapOID},
		{"unknown generic trap", v1Trap(t, "public", 9, 0), ErrUnknownGenericTrap},
		{"no handler", v2cTrap(t, "public", "1.3.6.1.4.1.1.2.3"), ErrNoHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProcessor(t, "public", defaultRules())

			outcome, err := p.Process(context.Background(), tt.payload, testAgent)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, OutcomeDropped, outcome)
		})
	}
}

func TestProcessSinkFailure(t *testing.T) {
	p, sink := newTestProcessor(t, "public", defaultRules())

	sinkErr := errors.New("stream unavailable")
	sink.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(sinkErr)

	outcome, err := p.Process(context.Background(), v2cTrap(t, "public", linkDownOID), testAgent)
	require.ErrorIs(t, err, sinkErr)
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestDispatchRecoversPanics(t *testing.T) {
	p, sink := newTestProcessor(t, "public", defaultRules())

	sink.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *models.Notification, models.HandlerRule) error { panic("sink exploded") })

	assert.NotPanics(t, func() {
		p.Dispatch(context.Background(), v2cTrap(t, "public", linkDownOID), testAgent)
	})

	// drops are logged, not surfaced
	assert.NotPanics(t, func() {
		p.Dispatch(context.Background(), []byte{0xff}, nil)
	})
}

func TestNewProcessorRequiresSink(t *testing.T) {
	_, err := NewProcessor(ProcessorConfig{}, HandlerTable{}, nil, logger.NewTestLogger())
	require.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "dropped", OutcomeDropped.String())
	assert.Equal(t, "blackholed", OutcomeBlackholed.String())
	assert.Equal(t, "delivered", OutcomeDelivered.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
