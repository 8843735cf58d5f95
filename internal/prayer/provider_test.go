package prayer

import (
	"context"
	"errors"
	"testing"
	"time"
)

type namedProvider struct {
	name  string
	err   error
	block bool
	calls int
}

func (p *namedProvider) Name() string { return p.name }

func (p *namedProvider) Fetch(ctx context.Context, _ Location, date time.Time) (RawTimes, error) {
	p.calls++
	if p.block {
		<-ctx.Done()
		return RawTimes{}, ctx.Err()
	}
	if p.err != nil {
		return RawTimes{}, p.err
	}
	return RawTimes{Date: date, Times: kuwaitTimes()}, nil
}

func TestFetcherFallsThroughToSecondary(t *testing.T) {
	primary := &namedProvider{name: "primary", err: errors.New("502")}
	secondary := &namedProvider{name: "secondary"}
	f := NewFetcher([]Provider{primary, secondary}, time.Second)

	raw, ok := f.Fetch(context.Background(), Location{City: "Kuwait City", Country: "Kuwait"}, day(2024, time.June, 15))
	if !ok {
		t.Fatalf("expected secondary provider to succeed")
	}
	if raw.Provider != "secondary" {
		t.Fatalf("expected provider name to be recorded, got %q", raw.Provider)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected one call each, got %d and %d", primary.calls, secondary.calls)
	}
}

func TestFetcherStopsAtFirstSuccess(t *testing.T) {
	primary := &namedProvider{name: "primary"}
	secondary := &namedProvider{name: "secondary"}
	f := NewFetcher([]Provider{primary, secondary}, time.Second)

	if _, ok := f.Fetch(context.Background(), Location{}, day(2024, time.June, 15)); !ok {
		t.Fatalf("expected success")
	}
	if secondary.calls != 0 {
		t.Fatalf("expected secondary provider to be skipped")
	}
}

func TestFetcherBoundsEachProvider(t *testing.T) {
	slow := &namedProvider{name: "slow", block: true}
	fast := &namedProvider{name: "fast"}
	f := NewFetcher([]Provider{slow, fast}, 50*time.Millisecond)

	start := time.Now()
	raw, ok := f.Fetch(context.Background(), Location{}, day(2024, time.June, 15))
	if !ok || raw.Provider != "fast" {
		t.Fatalf("expected fast provider after slow one timed out, got %q (ok=%v)", raw.Provider, ok)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("per-provider timeout not applied, took %s", elapsed)
	}
}

func TestFetcherAllFail(t *testing.T) {
	f := NewFetcher([]Provider{&namedProvider{name: "a", err: errors.New("x")}, &namedProvider{name: "b", err: errors.New("y")}}, time.Second)
	if _, ok := f.Fetch(context.Background(), Location{}, day(2024, time.June, 15)); ok {
		t.Fatalf("expected no result when every provider fails")
	}

	var empty *Fetcher
	if _, ok := empty.Fetch(context.Background(), Location{}, day(2024, time.June, 15)); ok {
		t.Fatalf("expected nil fetcher to report failure")
	}
}

func TestRegistryLookup(t *testing.T) {
	kc := NewService(Options{Location: Location{City: "Kuwait City", Country: "Kuwait"}, Memory: &mapMemory{entries: map[string]DaySchedule{}}})
	jahra := NewService(Options{Location: Location{City: "Jahra", Country: "Kuwait"}, Memory: &mapMemory{entries: map[string]DaySchedule{}}})
	r := NewRegistry(kc, nil, jahra)

	if got, ok := r.Lookup("", ""); !ok || got != kc {
		t.Fatalf("expected default lookup to return the first service")
	}
	if got, ok := r.Lookup(" jahra ", "KUWAIT"); !ok || got != jahra {
		t.Fatalf("expected case-insensitive lookup to find Jahra")
	}
	if _, ok := r.Lookup("Riyadh", "Saudi Arabia"); ok {
		t.Fatalf("expected unknown location to miss")
	}
	if len(r.Services()) != 2 {
		t.Fatalf("expected nil service to be skipped, got %d", len(r.Services()))
	}
}
