package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type testLogger struct{}

func (testLogger) Info(msg string, args ...any)  {}
func (testLogger) Error(msg string, args ...any) {}

type fakeChecker struct{ connected bool }

func (f fakeChecker) IsConnected() bool { return f.connected }

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New("", testLogger{}, nil); err == nil {
		t.Fatal("New() with empty addr: want error, got nil")
	}
}

func TestHandleHealthzAllConnected(t *testing.T) {
	s, err := New("127.0.0.1:0", testLogger{}, map[string]HealthChecker{
		"can":  fakeChecker{connected: true},
		"mqtt": fakeChecker{connected: true},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.handleHealthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "healthy" || body.Reason != "" {
		t.Fatalf("body = %+v, want status=healthy reason=\"\"", body)
	}
}

func TestHandleHealthzOneDisconnected(t *testing.T) {
	s, err := New("127.0.0.1:0", testLogger{}, map[string]HealthChecker{
		"can": fakeChecker{connected: false},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.handleHealthz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "degraded" || body.Reason != "can disconnected" {
		t.Fatalf("body = %+v, want status=degraded reason=\"can disconnected\"", body)
	}
}

func TestHealthCheckBeforeStart(t *testing.T) {
	s, err := New("127.0.0.1:0", testLogger{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Fatal("HealthCheck() before Start: want error, got nil")
	}
}

func TestStartAndClose(t *testing.T) {
	s, err := New("127.0.0.1:0", testLogger{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() after Start = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	s, err := New("127.0.0.1:0", testLogger{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() on unstarted server: want nil, got %v", err)
	}
}

func TestMetricsRoute(t *testing.T) {
	s, err := New("127.0.0.1:0", testLogger{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
