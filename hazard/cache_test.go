package hazard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/hazard"
)

type countingStore struct {
	calls int
	err   error
	zones []hazard.Zone
}

func (s *countingStore) ZonesIn(ctx context.Context, b orb.Bound) ([]hazard.Zone, error) {
	s.calls++
	return s.zones, s.err
}

func TestCachedStoreServesRepeatedQueries(t *testing.T) {
	inner := &countingStore{zones: []hazard.Zone{zoneAt("a", 50, 50, hazard.SeverityLow)}}
	store := hazard.NewCachedStore(inner, hazard.NewCache(8, time.Minute))

	b := geo.BoundAround(rider, 500)
	// a couple of meters away rounds to the same box
	nearby := geo.BoundAround(north(rider, 2), 500)
	for _, q := range []orb.Bound{b, b, nearby} {
		zones, err := store.ZonesIn(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(zones) != 1 {
			t.Fatalf("expected 1 zone, got %d", len(zones))
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 store call, got %d", inner.calls)
	}

	store.Purge()
	if _, err := store.ZonesIn(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected purge to force a store call, got %d calls", inner.calls)
	}
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	inner := &countingStore{err: errors.New("timeout")}
	cache := hazard.NewCache(8, time.Minute)
	store := hazard.NewCachedStore(inner, cache)

	b := geo.BoundAround(rider, 500)
	for i := 0; i < 2; i++ {
		if _, err := store.ZonesIn(context.Background(), b); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 || cache.Len() != 0 {
		t.Errorf("errors must not be cached: calls=%d len=%d", inner.calls, cache.Len())
	}
}

func TestCacheExpires(t *testing.T) {
	cache := hazard.NewCache(8, 20*time.Millisecond)
	b := geo.BoundAround(rider, 500)
	cache.Put(b, []hazard.Zone{zoneAt("a", 0, 10, hazard.SeverityLow)})
	if _, ok := cache.Get(b); !ok {
		t.Fatal("expected fresh entry")
	}
	time.Sleep(80 * time.Millisecond)
	if _, ok := cache.Get(b); ok {
		t.Error("expected entry to expire")
	}
}

func TestCacheCapacity(t *testing.T) {
	cache := hazard.NewCache(2, time.Minute)
	for i := 0; i < 3; i++ {
		cache.Put(geo.BoundAround(north(rider, float64(i)*1000), 500), nil)
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", cache.Len())
	}
}
