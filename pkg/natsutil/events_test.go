package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

var errTestFixture = errors.New("fixture error")

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:     "adds subject when list empty",
			subjects: nil,
			subject:  "healthchecker.traps.>",
			want:     []string{"healthchecker.traps.>"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"healthchecker.>"},
			subject:  "healthchecker.traps.>",
			want:     []string{"healthchecker.>"},
		},
		{
			name:     "single wildcard does not cover greater wildcard",
			subjects: []string{"healthchecker.traps.*"},
			subject:  "healthchecker.traps.>",
			want:     []string{"healthchecker.traps.*", "healthchecker.traps.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"logs.syslog.*"},
			subject:  "healthchecker.traps.>",
			want:     []string{"logs.syslog.*", "healthchecker.traps.>"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		subject  string
		expected bool
	}{
		{"exact match", "healthchecker.traps.critical", "healthchecker.traps.critical", true},
		{"single wildcard", "healthchecker.*.critical", "healthchecker.traps.critical", true},
		{"greater wildcard", "healthchecker.>", "healthchecker.traps.critical", true},
		{"greater wildcard needs a token", "healthchecker.traps.>", "healthchecker.traps", false},
		{"no match length", "healthchecker.*", "healthchecker.traps.critical", false},
		{"no match tokens", "logs.syslog.*", "healthchecker.traps.critical", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := matchesSubject(tc.pattern, tc.subject); got != tc.expected {
				t.Fatalf("matchesSubject(%q, %q) = %t, want %t", tc.pattern, tc.subject, got, tc.expected)
			}
		})
	}
}

func TestIsStreamMissingErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"jetstream no stream response", jetstream.ErrNoStreamResponse, true},
		{"jetstream stream not found", jetstream.ErrStreamNotFound, true},
		{"nats no stream response", nats.ErrNoStreamResponse, true},
		{"nats stream not found", nats.ErrStreamNotFound, true},
		{"nats no responders", nats.ErrNoResponders, true},
		{"other error", errTestFixture, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := isStreamMissingErr(tc.err); got != tc.expected {
				t.Fatalf("isStreamMissingErr(%v) = %t, want %t", tc.err, got, tc.expected)
			}
		})
	}
}

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	srv, err := server.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	require.Eventually(t, func() bool {
		return srv.JetStreamEnabled()
	}, 5*time.Second, 50*time.Millisecond, "embedded NATS server not ready for JetStream")

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestPublisherDeliver(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := Connect(ctx, Config{URL: srv.ClientURL()}, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close() })

	sent := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	expires := sent.Add(time.Hour)

	n := &models.Notification{
		Host:      "192.0.2.1",
		Manager:   "nms01",
		Version:   "v2c",
		Community: "s3cret-community",
		OID:       "1.3.6.1.6.3.1.1.5.3",
		Severity:  models.SeverityCritical,
		Sent:      sent,
		Expires:   &expires,
		VarBinds:  []models.VarBind{{OID: "1.3.6.1.2.1.2.2.1.1.7", Type: "integer", Value: 7}},
	}

	require.NoError(t, p.Deliver(ctx, n, models.HandlerRule{Severity: models.SeverityCritical}))

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, DefaultStream)
	require.NoError(t, err)

	msg, err := stream.GetLastMsgForSubject(ctx, DefaultSubject+".critical")
	require.NoError(t, err)

	var event struct {
		SpecVersion string              `json:"specversion"`
		ID          string              `json:"id"`
		Type        string              `json:"type"`
		Subject     string              `json:"subject"`
		Data        models.Notification `json:"data"`
	}

	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "1.0", event.SpecVersion)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TrapEventType, event.Type)
	assert.Equal(t, "healthchecker.traps.critical", event.Subject)
	assert.Equal(t, n.OID, event.Data.OID)
	assert.Equal(t, n.Host, event.Data.Host)
	require.NotNil(t, event.Data.Expires)
	assert.True(t, expires.Equal(*event.Data.Expires))

	// the community string is a credential and never leaves the process
	assert.NotContains(t, string(msg.Data), "s3cret-community")
	assert.NotContains(t, string(msg.Data), `"community"`)
	assert.Empty(t, event.Data.Community)
}

func TestPublisherDeliverFailsFastWhenDisconnected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := Config{URL: srv.ClientURL(), PublishTimeout: models.Duration(200 * time.Millisecond)}

	p, err := Connect(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close() })

	n := &models.Notification{OID: "1.2.3", Severity: models.SeverityWarning}

	require.NoError(t, p.Deliver(ctx, n, models.HandlerRule{}))

	srv.Shutdown()

	require.Eventually(t, func() bool {
		return p.nc.Status() != nats.CONNECTED
	}, 5*time.Second, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		start := time.Now()
		err := p.Deliver(ctx, n, models.HandlerRule{})
		elapsed := time.Since(start)

		require.ErrorIs(t, err, ErrNotConnected)
		assert.Less(t, elapsed, 100*time.Millisecond, "deliver %d blocked for %s", i, elapsed)
	}
}

func TestPublisherDeliverBoundedByPublishTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := Config{URL: srv.ClientURL(), PublishTimeout: models.Duration(200 * time.Millisecond)}

	p, err := Connect(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close() })

	// with the stream gone nothing acks, but the connection stays up
	require.NoError(t, p.js.DeleteStream(ctx, DefaultStream))

	start := time.Now()
	err = p.Deliver(ctx, &models.Notification{OID: "1.2.3"}, models.HandlerRule{})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestConfigDefaultsPublishTimeout(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, DefaultPublishTimeout, cfg.PublishTimeout.Std())
}

func TestPublisherExtendsExistingStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := runJetStreamServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)

	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: "EVENTS", Subjects: []string{"events.>"}})
	require.NoError(t, err)

	p, err := Connect(ctx, Config{URL: srv.ClientURL(), Stream: "EVENTS", Subject: "traps"}, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "traps.unknown", p.Subject(""))

	stream, err := js.Stream(ctx, "EVENTS")
	require.NoError(t, err)
	assert.Equal(t, []string{"events.>", "traps.>"}, stream.CachedInfo().Config.Subjects)

	require.NoError(t, p.Deliver(ctx, &models.Notification{OID: "1.2.3", Severity: models.SeverityWarning}, models.HandlerRule{}))

	_, err = stream.GetLastMsgForSubject(ctx, "traps.warning")
	require.NoError(t, err)
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{}, logger.NewTestLogger())
	require.ErrorIs(t, err, errURLRequired)
}

func TestClientTLS(t *testing.T) {
	_, err := ClientTLS(nil)
	require.ErrorIs(t, err, ErrMTLSRequired)

	_, err = ClientTLS(&TLSConfig{CAFile: "ca.pem"})
	require.ErrorIs(t, err, ErrMTLSRequired)

	sec := &TLSConfig{CertDir: t.TempDir(), CAFile: "ca.pem", CertFile: "client.pem", KeyFile: "client-key.pem"}
	_, err = ClientTLS(sec)
	require.Error(t, err)
	assert.Contains(t, sec.CertFile, sec.CertDir)
}
