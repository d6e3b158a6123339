package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/route"
)

// fetcher loads route documents from URLs or local files.
type fetcher struct {
	httpClient *http.Client
}

func newFetcher(timeout time.Duration) *fetcher {
	return &fetcher{httpClient: &http.Client{Timeout: timeout}}
}

// fetch returns the raw bytes behind urlOrPath. Anything without an http or
// https scheme is read from disk, and "-" reads stdin.
func (f *fetcher) fetch(ctx context.Context, urlOrPath string) ([]byte, error) {
	if urlOrPath == "-" {
		return io.ReadAll(os.Stdin)
	}
	if !strings.HasPrefix(urlOrPath, "http://") && !strings.HasPrefix(urlOrPath, "https://") {
		return os.ReadFile(urlOrPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlOrPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", urlOrPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, urlOrPath)
	}
	return io.ReadAll(resp.Body)
}

// fetchRoute loads and parses a route document.
func (f *fetcher) fetchRoute(ctx context.Context, urlOrPath string) (*route.Route, error) {
	data, err := f.fetch(ctx, urlOrPath)
	if err != nil {
		return nil, err
	}
	return route.ParseDocument(data)
}
