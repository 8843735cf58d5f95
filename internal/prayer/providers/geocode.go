package providers

import (
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/BigBossQ8e/kuwait-social-ai-digitalocean-sub000/internal/prayer"
)

// Geocoder resolves city/country pairs to coordinates via the Google
// Geocoding API so providers can use the coordinate endpoint.
type Geocoder struct {
	apiKey string

	mu       sync.Mutex
	resolved map[string]prayer.Location
}

func NewGeocoder(apiKey string) *Geocoder {
	return &Geocoder{apiKey: apiKey, resolved: make(map[string]prayer.Location)}
}

// Resolve returns loc with coordinates filled in. Locations that already carry
// coordinates are returned unchanged.
func (g *Geocoder) Resolve(loc prayer.Location) (prayer.Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if g.apiKey == "" {
		return loc, fmt.Errorf("geocoder api key is not configured")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.resolved[loc.Key()]; ok {
		return cached, nil
	}

	geocoder.ApiKey = g.apiKey
	res, err := geocoder.Geocoding(geocoder.Address{City: loc.City, Country: loc.Country})
	if err != nil {
		return loc, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}

	lat, lon := res.Latitude, res.Longitude
	loc.Lat = &lat
	loc.Lon = &lon
	g.resolved[loc.Key()] = loc
	return loc, nil
}
