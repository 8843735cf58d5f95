package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/cache"
	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

var kuwait = time.FixedZone("Asia/Kuwait", 3*60*60)

type stubProvider struct {
	err error
}

func (stubProvider) Name() string { return "stub" }

func (p stubProvider) Fetch(_ context.Context, _ prayer.Location, date time.Time) (prayer.RawTimes, error) {
	if p.err != nil {
		return prayer.RawTimes{}, p.err
	}
	return prayer.RawTimes{
		Date: date,
		Times: map[prayer.PrayerName]prayer.Clock{
			prayer.Fajr:    prayer.NewClock(3, 15),
			prayer.Sunrise: prayer.NewClock(4, 48),
			prayer.Dhuhr:   prayer.NewClock(11, 45),
			prayer.Asr:     prayer.NewClock(15, 20),
			prayer.Maghrib: prayer.NewClock(18, 50),
			prayer.Isha:    prayer.NewClock(20, 20),
		},
		HijriMonth: 12,
	}, nil
}

func newTestApp(p prayer.Provider) *fiber.App {
	svc := prayer.NewService(prayer.Options{
		Location: prayer.Location{City: "Kuwait City", Country: "Kuwait"},
		TimeZone: kuwait,
		Fetcher:  prayer.NewFetcher([]prayer.Provider{p}, time.Second),
		Memory:   cache.NewMemory(time.Hour),
	})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, prayer.NewRegistry(svc))
	return app
}

func get(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return resp.StatusCode
}

type timesResponse struct {
	Date   string                   `json:"date"`
	Order  []string                 `json:"order"`
	Times  map[string]prayer.Window `json:"times"`
	Source string                   `json:"source"`
}

func TestPrayerTimesEndpoint(t *testing.T) {
	app := newTestApp(stubProvider{})

	var body timesResponse
	status := get(t, app, "/api/v1/prayer-times?city=Kuwait%20City&country=Kuwait&date=2024-06-14", &body)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body.Date != "2024-06-14" || body.Source != "api" {
		t.Fatalf("unexpected body %+v", body)
	}
	jummah, ok := body.Times["Jummah"]
	if !ok || jummah.Start != prayer.NewClock(12, 15) {
		t.Fatalf("expected Friday Jummah at 12:15, got %+v", body.Times)
	}
	if len(body.Order) != 6 || body.Order[0] != "Fajr" {
		t.Fatalf("unexpected order %v", body.Order)
	}
}

func TestPrayerTimesDefaultsToFirstLocation(t *testing.T) {
	app := newTestApp(stubProvider{})

	var body timesResponse
	if status := get(t, app, "/api/v1/prayer-times?date=2024-06-15", &body); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if _, ok := body.Times["Jummah"]; ok {
		t.Fatalf("did not expect Jummah on a Saturday")
	}
}

func TestPrayerTimesValidation(t *testing.T) {
	app := newTestApp(stubProvider{})

	cases := []struct {
		target string
		status int
	}{
		{"/api/v1/prayer-times?city=Kuwait%20City", http.StatusBadRequest},
		{"/api/v1/prayer-times?date=2024/06/14", http.StatusBadRequest},
		{"/api/v1/prayer-times?city=Paris&country=FR", http.StatusNotFound},
		{"/api/v1/prayer-times/status?at=yesterday", http.StatusBadRequest},
		{"/api/v1/schedule/slot?country=Kuwait", http.StatusBadRequest},
	}
	for _, tc := range cases {
		var body struct {
			Error   bool   `json:"error"`
			Message string `json:"message"`
		}
		status := get(t, app, tc.target, &body)
		if status != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.target, tc.status, status)
		}
		if !body.Error || body.Message == "" {
			t.Fatalf("%s: expected error body, got %+v", tc.target, body)
		}
	}
}

func TestPrayerTimesServesFallbackWhenProvidersFail(t *testing.T) {
	app := newTestApp(stubProvider{err: errors.New("unreachable")})

	var body timesResponse
	if status := get(t, app, "/api/v1/prayer-times?date=2024-06-15", &body); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body.Source != "fallback" {
		t.Fatalf("expected seasonal fallback, got %q", body.Source)
	}

	var health struct {
		Status string `json:"status"`
	}
	get(t, app, "/health", &health)
	if health.Status != "degraded" {
		t.Fatalf("expected degraded health after a failure, got %q", health.Status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	app := newTestApp(stubProvider{})

	var body struct {
		IsPrayerTime bool   `json:"is_prayer_time"`
		Prayer       string `json:"prayer"`
	}
	// 09:00 UTC is 12:00 in Kuwait.
	if status := get(t, app, "/api/v1/prayer-times/status?at=2024-06-15T09:00:00Z", &body); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if !body.IsPrayerTime || body.Prayer != "Dhuhr" {
		t.Fatalf("expected Dhuhr, got %+v", body)
	}
}

func TestNextEndpoint(t *testing.T) {
	app := newTestApp(stubProvider{})

	var body struct {
		Name         string `json:"name"`
		MinutesUntil int    `json:"minutes_until"`
	}
	target := "/api/v1/prayer-times/next?at=" + url.QueryEscape("2024-06-15T12:40:00+03:00")
	if status := get(t, app, target, &body); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body.Name != "Asr" || body.MinutesUntil != 160 {
		t.Fatalf("expected Asr in 160 minutes, got %+v", body)
	}
}

func TestSlotEndpoint(t *testing.T) {
	app := newTestApp(stubProvider{})

	var body struct {
		ScheduledAt time.Time `json:"scheduled_at"`
		Shifted     bool      `json:"shifted"`
		Prayer      string    `json:"prayer"`
	}
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, kuwait).Unix()
	target := "/api/v1/schedule/slot?at=" + strconv.FormatInt(at, 10)
	if status := get(t, app, target, &body); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	want := time.Date(2024, 6, 15, 12, 30, 0, 0, kuwait)
	if !body.Shifted || body.Prayer != "Dhuhr" || !body.ScheduledAt.Equal(want) {
		t.Fatalf("expected shift to %s, got %+v", want, body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(stubProvider{})

	var body struct {
		Status    string           `json:"status"`
		Locations []map[string]any `json:"locations"`
	}
	if status := get(t, app, "/health", &body); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body.Status != "ok" || len(body.Locations) != 1 {
		t.Fatalf("unexpected health body %+v", body)
	}
}
