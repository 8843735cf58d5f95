package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

const timingsBody = `{
  "code": 200,
  "status": "OK",
  "data": {
    "timings": {
      "Fajr": "03:15 (+03)",
      "Sunrise": "04:48 (+03)",
      "Dhuhr": "11:45 (+03)",
      "Asr": "15:20 (+03)",
      "Sunset": "18:43 (+03)",
      "Maghrib": "18:50 (+03)",
      "Isha": "20:20 (+03)",
      "Imsak": "03:05 (+03)",
      "Midnight": "23:45 (+03)"
    },
    "date": {"hijri": {"month": {"number": 12}}}
  }
}`

func TestAladhanProviderFetchByCity(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(timingsBody))
	}))
	defer srv.Close()

	p := NewAladhanProvider("aladhan", srv.Client(), srv.URL+"/v1", MethodKuwait)
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	raw, err := p.Fetch(context.Background(), prayer.Location{City: "Kuwait City", Country: "Kuwait"}, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/timingsByCity/15-06-2024" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	for _, part := range []string{"city=Kuwait+City", "country=Kuwait", "method=9"} {
		if !strings.Contains(gotQuery, part) {
			t.Fatalf("expected query to contain %q, got %q", part, gotQuery)
		}
	}

	if raw.Times[prayer.Dhuhr] != prayer.NewClock(11, 45) {
		t.Fatalf("expected Dhuhr 11:45, got %s", raw.Times[prayer.Dhuhr])
	}
	if raw.Times[prayer.Sunrise] != prayer.NewClock(4, 48) {
		t.Fatalf("expected Sunrise 04:48, got %s", raw.Times[prayer.Sunrise])
	}
	if len(raw.Times) != 6 {
		t.Fatalf("expected five prayers plus sunrise, got %d entries", len(raw.Times))
	}
	if raw.HijriMonth != 12 {
		t.Fatalf("expected hijri month 12, got %d", raw.HijriMonth)
	}
	if raw.Provider != "aladhan" {
		t.Fatalf("expected provider name aladhan, got %q", raw.Provider)
	}
}

func TestAladhanProviderUsesCoordinates(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(timingsBody))
	}))
	defer srv.Close()

	lat, lon := 29.3759, 47.9774
	loc := prayer.Location{City: "Kuwait City", Country: "Kuwait", Lat: &lat, Lon: &lon}
	p := NewAladhanProvider("aladhan", srv.Client(), srv.URL, 0)

	if _, err := p.Fetch(context.Background(), loc, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/timings/15-06-2024" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "latitude=29.375900") || strings.Contains(gotQuery, "city=") {
		t.Fatalf("expected coordinate query, got %q", gotQuery)
	}
}

func TestAladhanProviderRejectsIncompleteTimings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"data":{"timings":{"Fajr":"03:15","Dhuhr":"11:45"}}}`))
	}))
	defer srv.Close()

	p := NewAladhanProvider("aladhan", srv.Client(), srv.URL, MethodKuwait)
	_, err := p.Fetch(context.Background(), prayer.Location{City: "Kuwait City", Country: "Kuwait"}, time.Now())
	if err == nil || !strings.Contains(err.Error(), "missing Asr") {
		t.Fatalf("expected missing Asr error, got %v", err)
	}
}

func TestAladhanProviderRejectsErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":400,"status":"Bad Request","data":{}}`))
	}))
	defer srv.Close()

	p := NewAladhanProvider("aladhan", srv.Client(), srv.URL, MethodKuwait)
	if _, err := p.Fetch(context.Background(), prayer.Location{City: "x", Country: "y"}, time.Now()); err == nil {
		t.Fatalf("expected error for code 400 payload")
	}
}

func TestAladhanProviderOpensCircuit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewAladhanProvider("aladhan", srv.Client(), srv.URL, MethodKuwait)
	loc := prayer.Location{City: "Kuwait City", Country: "Kuwait"}

	_, err := p.Fetch(context.Background(), loc, time.Now())
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected server error, got %v", err)
	}

	var lastErr error
	for i := 0; i < 2; i++ {
		_, lastErr = p.Fetch(context.Background(), loc, time.Now())
	}
	if !errors.Is(lastErr, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", lastErr)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected breaker to stop requests after 3 failures, got %d hits", got)
	}
}

func TestAladhanProviderHonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewAladhanProvider("slow", srv.Client(), srv.URL, MethodKuwait)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := p.Fetch(ctx, prayer.Location{City: "x", Country: "y"}, time.Now()); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("fetch ignored the deadline, took %s", elapsed)
	}
}
