package app

import (
	"context"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_StopsOnSignal(t *testing.T) {
	s := newTestServices(t)
	sigChan := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), s, sigChan)
	}()

	require.Eventually(t, func() bool {
		addr := s.Server.Addr()
		if addr == "" {
			return false
		}
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	sigChan <- syscall.SIGTERM

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after SIGTERM")
	}
	assert.Empty(t, s.Server.Addr())
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	s := newTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, s, make(chan os.Signal))
	}()

	require.Eventually(t, func() bool { return s.Server.Addr() != "" }, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.SwitchyardConfig.Server.Host = "256.0.0.1"

	s, err := InitializeServices(cfg)
	require.NoError(t, err)

	err = serve(context.Background(), s, make(chan os.Signal))
	assert.Error(t, err)
}
