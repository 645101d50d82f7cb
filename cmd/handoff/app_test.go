package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/handoff/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: "info"},
		Producer: config.ProducerConfig{
			Period: 20 * time.Millisecond,
			Batch:  []string{"cleanroom", "washdish", "buyfood"},
		},
		Task:     config.TaskConfig{MaxNameLength: 9},
		Admin:    config.AdminConfig{Port: 9090},
		Shutdown: config.ShutdownConfig{Timeout: 2 * time.Second},
		Events:   config.EventsConfig{HistorySize: 64},
	}
}

// runApp starts app.Run in the background and returns a cancel func and the result channel.
func runApp(t *testing.T, app *application) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func waitRunReturned(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
		return nil
	}
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Producer.Batch = []string{"much-too-long-name"}

	app, err := newApplication(cfg, testLogger())
	assert.ErrorIs(t, err, config.ErrValidation)
	assert.Nil(t, app)
}

func TestApplication_Run(t *testing.T) {
	app, err := newApplication(testConfig(), testLogger())
	require.NoError(t, err)

	cancel, done := runApp(t, app)

	ctx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, app.recorder.WaitForTotal(ctx, 6))

	cancel()
	require.NoError(t, waitRunReturned(t, done))

	names := app.recorder.Names()
	assert.Equal(t, []string{"cleanroom", "washdish", "buyfood", "cleanroom", "washdish", "buyfood"}, names[:6])

	producer, consumer := app.supervisor.Handles()
	require.NotNil(t, producer)
	require.NotNil(t, consumer)
	assert.False(t, producer.Running())
	assert.False(t, consumer.Running())
}

func TestApplication_RunTwiceFails(t *testing.T) {
	app, err := newApplication(testConfig(), testLogger())
	require.NoError(t, err)

	cancel, done := runApp(t, app)
	require.Eventually(t, func() bool {
		p, _ := app.supervisor.Handles()
		return p != nil
	}, time.Second, time.Millisecond)

	err = app.Run(context.Background())
	assert.Error(t, err, "the loops can only be started once")

	cancel()
	require.NoError(t, waitRunReturned(t, done))
}

func TestApplication_Router(t *testing.T) {
	app, err := newApplication(testConfig(), testLogger())
	require.NoError(t, err)

	router := app.setupRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "handoff_queue_depth")
}

func TestApplication_RunAdminServer(t *testing.T) {
	// Grab a free port for the admin server
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig()
	cfg.Admin.Enabled = true
	cfg.Admin.Port = port

	app, err := newApplication(cfg, testLogger())
	require.NoError(t, err)

	cancel, done := runApp(t, app)

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond, "admin server never became ready")

	cancel()
	require.NoError(t, waitRunReturned(t, done))

	_, err = http.Get(url)
	assert.Error(t, err, "admin server must be closed after shutdown")
}

func TestInitializeApp(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Setenv("HANDOFF_PRODUCER_PERIOD", "5s")
	t.Setenv("HANDOFF_SERVER_LOG_LEVEL", "error")

	cfg, appLogger, err := initializeApp()
	require.NoError(t, err)
	require.NotNil(t, appLogger)

	assert.Equal(t, 5*time.Second, cfg.Producer.Period)
	assert.Equal(t, "error", cfg.Server.LogLevel)
	assert.Equal(t, []string{"cleanroom", "washdish", "buyfood"}, cfg.Producer.Batch)
}

func TestInitializeApp_InvalidConfig(t *testing.T) {
	t.Setenv("HANDOFF_TASK_MAX_NAME_LENGTH", "4")

	_, _, err := initializeApp()
	assert.ErrorIs(t, err, config.ErrValidation)
}
