package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tidemarkdata/clickstream-engine/pkg/config"
	"github.com/tidemarkdata/clickstream-engine/pkg/logger"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz/live", nil)

	HealthLive(testConfig())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-Clickstream-Env"))
	require.Contains(t, rec.Body.String(), `"status":"live"`)
}

func TestHealthReady_AllDependenciesUp(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz/ready", nil)

	deps := map[string]Pinger{
		"warehouse": fakePinger{},
		"redis":     fakePinger{},
	}
	HealthReady(testConfig(), testLogger(), deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestHealthReady_DependencyDown(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz/ready", nil)

	deps := map[string]Pinger{
		"warehouse": fakePinger{},
		"redis":     fakePinger{err: errors.New("connection refused")},
	}
	HealthReady(testConfig(), testLogger(), deps)(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "DEPENDENCY_ERROR")
}

func TestHealthReady_SkipsNilDependencies(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz/ready", nil)

	deps := map[string]Pinger{"warehouse": fakePinger{}, "redis": nil}
	HealthReady(testConfig(), testLogger(), deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
