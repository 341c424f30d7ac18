package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runner-scout/internal/alert"
	"runner-scout/internal/clock"
	"runner-scout/internal/domain"
	"runner-scout/internal/pipeline"
	"runner-scout/internal/scheduler"
	"runner-scout/internal/storage/memory"
)

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeScheduler struct {
	status   scheduler.Status
	interval time.Duration
}

func (f fakeScheduler) Status() scheduler.Status { return f.status }
func (f fakeScheduler) Interval() time.Duration  { return f.interval }

type fakeSeen struct{ n int }

func (f fakeSeen) Len() int             { return f.n }
func (f fakeSeen) LastReset() time.Time { return now.Add(-10 * time.Minute) }

type failingAlerts struct{}

func (failingAlerts) Recent(context.Context, int) ([]*domain.Alert, error) {
	return nil, errors.New("db down")
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_OK(t *testing.T) {
	clk := clock.NewFake(now)
	s := New(Options{
		Scheduler: fakeScheduler{
			interval: 30 * time.Second,
			status: scheduler.Status{
				Cycles:      4,
				LastSuccess: now.Add(-20 * time.Second),
				LastReport:  &pipeline.Report{CycleID: 4, Alerts: 2},
			},
		},
		Seen:  fakeSeen{n: 7},
		Clock: clk,
	})

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(4), resp.LastCycleID)
	assert.Equal(t, 2, resp.LastAlerts)
	assert.Equal(t, 7, resp.SeenSize)
}

func TestHealth_DegradedWhenStale(t *testing.T) {
	clk := clock.NewFake(now)
	s := New(Options{
		Scheduler: fakeScheduler{
			interval: 30 * time.Second,
			status:   scheduler.Status{Cycles: 10, Failures: 5, LastSuccess: now.Add(-5 * time.Minute), LastError: "emit failed"},
		},
		Clock: clk,
	})

	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestHealth_NoCyclesYet(t *testing.T) {
	s := New(Options{Scheduler: fakeScheduler{interval: time.Second}, Clock: clock.NewFake(now)})
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/health").Code)
}

func TestRecentAlerts(t *testing.T) {
	store := memory.NewAlertStore(0)
	for i, pair := range []string{"p1", "p2", "p3"} {
		require.NoError(t, store.InsertBulk(context.Background(), []*domain.Alert{{
			ID: pair, CycleID: int64(i + 1), Chain: domain.ChainSolana, PairID: pair, Symbol: "S", Score: 3.5,
		}}))
	}
	s := New(Options{Alerts: store})

	rec := get(t, s.Handler(), "/alerts/recent?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []alert.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "p3", got[0].PairID)
	assert.Equal(t, "p2", got[1].PairID)

	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/alerts/recent?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/alerts/recent?limit=0").Code)
}

func TestRecentAlerts_StoreError(t *testing.T) {
	s := New(Options{Alerts: failingAlerts{}})
	assert.Equal(t, http.StatusInternalServerError, get(t, s.Handler(), "/alerts/recent").Code)
}

func TestRecentAlerts_NoStore(t *testing.T) {
	s := New(Options{})
	rec := get(t, s.Handler(), "/alerts/recent")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestMetricsAndFeedRoutes(t *testing.T) {
	hub := alert.NewHub(nil)
	defer hub.Close()
	s := New(Options{Feed: hub})

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/metrics").Code)
	// A plain GET without upgrade headers is rejected by the hub.
	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/ws").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		return rec.Code
	}())
}
