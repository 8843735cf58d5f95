package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

// MethodKuwait is the Aladhan calculation method id for Kuwait.
const MethodKuwait = 9

// AladhanProvider implements prayer.Provider for the Aladhan timings API and
// any service that mirrors its response shape.
type AladhanProvider struct {
	name    string
	baseURL string
	method  int
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAladhanProvider(name string, client *http.Client, baseURL string, method int) *AladhanProvider {
	if method <= 0 {
		method = MethodKuwait
	}
	return &AladhanProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  method,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker(name),
	}
}

func (p *AladhanProvider) Name() string {
	return p.name
}

func (p *AladhanProvider) Fetch(ctx context.Context, loc prayer.Location, date time.Time) (prayer.RawTimes, error) {
	if p.baseURL == "" {
		return prayer.RawTimes{}, fmt.Errorf("%s base url is not configured", p.name)
	}

	var payload struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
		Data   struct {
			Timings map[string]string `json:"timings"`
			Date    struct {
				Hijri struct {
					Month struct {
						Number int `json:"number"`
					} `json:"month"`
				} `json:"hijri"`
			} `json:"date"`
		} `json:"data"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.requestURL(loc, date), &payload); err != nil {
		return prayer.RawTimes{}, err
	}
	if payload.Code != 0 && payload.Code != http.StatusOK {
		return prayer.RawTimes{}, fmt.Errorf("%s returned code %d: %s", p.name, payload.Code, payload.Status)
	}

	times, err := normalizeTimings(payload.Data.Timings)
	if err != nil {
		return prayer.RawTimes{}, fmt.Errorf("%s: %w", p.name, err)
	}

	return prayer.RawTimes{
		Date:       date,
		Times:      times,
		HijriMonth: payload.Data.Date.Hijri.Month.Number,
		Provider:   p.name,
	}, nil
}

func (p *AladhanProvider) requestURL(loc prayer.Location, date time.Time) string {
	values := url.Values{}
	values.Set("method", strconv.Itoa(p.method))

	endpoint := "timingsByCity"
	if loc.HasCoordinates() {
		endpoint = "timings"
		values.Set("latitude", strconv.FormatFloat(*loc.Lat, 'f', 6, 64))
		values.Set("longitude", strconv.FormatFloat(*loc.Lon, 'f', 6, 64))
	} else {
		values.Set("city", loc.City)
		values.Set("country", loc.Country)
	}

	return fmt.Sprintf("%s/%s/%s?%s", p.baseURL, endpoint, date.Format("02-01-2006"), values.Encode())
}

// normalizeTimings keeps the prayers we schedule around; Sunrise is optional.
func normalizeTimings(timings map[string]string) (map[prayer.PrayerName]prayer.Clock, error) {
	out := make(map[prayer.PrayerName]prayer.Clock, len(prayer.DailyPrayers)+1)
	for _, name := range prayer.DailyPrayers {
		raw, ok := timings[string(name)]
		if !ok {
			return nil, fmt.Errorf("missing %s in timings", name)
		}
		c, err := prayer.ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = c
	}
	if raw, ok := timings[string(prayer.Sunrise)]; ok {
		if c, err := prayer.ParseClock(raw); err == nil {
			out[prayer.Sunrise] = c
		}
	}
	return out, nil
}
