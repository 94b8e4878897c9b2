package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunWorstStatusWins(t *testing.T) {
	c := NewChecker()
	c.Register("index", func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} })
	c.Register("redis", PingCheck(nil))
	if got := c.Run(context.Background()).Status; got != StatusDegraded {
		t.Fatalf("status = %s, want degraded", got)
	}
	c.Register("index", func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDown} })
	if got := c.Run(context.Background()).Status; got != StatusDown {
		t.Fatalf("status = %s, want down", got)
	}
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(func(context.Context) error { return nil })(context.Background())
	if ok.Status != StatusUp {
		t.Errorf("healthy ping = %s", ok.Status)
	}
	bad := PingCheck(func(context.Context) error { return errors.New("refused") })(context.Background())
	if bad.Status != StatusDegraded || bad.Message != "refused" {
		t.Errorf("failing ping = %+v", bad)
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("kafka", PingCheck(nil))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded service code = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["kafka"].Status != StatusDegraded {
		t.Errorf("kafka component = %+v", report.Components["kafka"])
	}

	c.Register("index", func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDown} })
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("down service code = %d, want 503", rec.Code)
	}
}
