package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testRoute = `{"id":"r","geometry":{"type":"LineString","coordinates":[[-122.4194,37.7749],[-122.4194,37.7759]]}}`

func TestFetchRouteFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "route.json")
	if err := os.WriteFile(p, []byte(testRoute), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	r, err := newFetcher(time.Second).fetchRoute(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "r" || len(r.Polyline) != 2 {
		t.Errorf("unexpected route %+v", r)
	}
}

func TestFetchRouteFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(testRoute))
	}))
	defer srv.Close()

	f := newFetcher(time.Second)
	if _, err := f.fetchRoute(context.Background(), srv.URL+"/route.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.fetchRoute(context.Background(), srv.URL+"/missing.json"); err == nil {
		t.Error("expected an error for a 404")
	}
}
