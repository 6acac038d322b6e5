package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/core/health"
	"github.com/dmitrymomot/mfakit/core/mfa"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	t.Parallel()

	first, err := run(t, "keygen")
	require.NoError(t, err)
	second, err := run(t, "keygen")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	key, err := secrets.DecodeKey(string(bytes.TrimSpace([]byte(first))))
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestUnknownLogFormat(t *testing.T) {
	t.Parallel()

	_, err := run(t, "--log-format", "xml", "keygen")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestPrincipalCommandsRequireFlags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"status", "unlock"} {
		_, err := run(t, name, "--tenant", "acme")
		assert.ErrorIs(t, err, errMissingPrincipal, name)
	}
}

func TestPrintStatus(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	a := &app{out: &out}
	used := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, printStatus(a, mfa.Principal{ID: "alice", TenantID: "acme"}, &mfa.Status{
		Configured:          true,
		Enabled:             true,
		UnusedRecoveryCodes: 7,
		CreatedAt:           used.Add(-time.Hour),
		LastUsedAt:          &used,
	}))

	assert.Contains(t, out.String(), "enabled:         true")
	assert.Contains(t, out.String(), "recovery codes:  7")
	assert.Contains(t, out.String(), "last used:       2026-03-01T09:00:00Z")
}

func TestHandler(t *testing.T) {
	t.Parallel()

	a := &app{out: io.Discard, errOut: io.Discard, logFormat: "text"}
	require.NoError(t, a.setupLogger())

	a.lockoutBackend = backendMemory

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := &runtime{registry: prometheus.NewRegistry()}
	opts, err := a.lockoutStore(ctx, rt)
	require.NoError(t, err)
	go func() { _ = rt.fallback.Run(ctx)() }()
	require.Eventually(t, func() bool { return rt.fallback.Stats().IsRunning }, time.Second, 10*time.Millisecond)

	rt.tracker, err = lockout.NewTracker(lockout.Config{}, opts...)
	require.NoError(t, err)

	vault, err := secrets.NewVault([]byte("k"))
	require.NoError(t, err)
	store := mfa.NewMemoryStore()
	rt.service, err = mfa.NewService(mfa.DefaultConfig("MyApp"), store, store, vault, rt.tracker)
	require.NoError(t, err)

	srv := httptest.NewServer(rt.handler(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	var rep health.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "local", rep.Info["lockout_mode"])
	assert.Equal(t, "ok", rep.Checks["lockout_fallback"])

	_, err = rt.tracker.RecordFailure(ctx, "acme:alice")
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "mfa_lockout_failures_total 1")
}
