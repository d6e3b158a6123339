package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/theoremus-urban-solutions/ridenav/config"
	"github.com/theoremus-urban-solutions/ridenav/geo"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return p
}

// TestLoadAppConfig_RepositoryFile loads the config.yml shipped at the repo root
func TestLoadAppConfig_RepositoryFile(t *testing.T) {
	orig := config.Config
	defer func() { config.Config = orig }()

	cfg, err := config.LoadAppConfig("../config.yml")
	if err != nil {
		t.Fatalf("Failed to load config.yml: %v", err)
	}
	if cfg.Region != geo.SanFrancisco {
		t.Errorf("expected the San Francisco region, got %+v", cfg.Region)
	}
	if config.Config.Server.Port != cfg.Server.Port {
		t.Error("LoadAppConfig should store the result in config.Config")
	}
	t.Logf("✓ Loaded config for %s on port %d", cfg.Logging.Service, cfg.Server.Port)
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := config.LoadAppConfig(filepath.Join(dir, "nope.yml")); err == nil {
		t.Error("loading a missing config should return an error")
	}
}

func TestLoadAppConfig_FirstExistingPathWins(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "second.yml", "server:\n  port: 9191\n")
	cfg, err := config.LoadAppConfig(filepath.Join(dir, "first.yml"), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Server.Port)
	}
}

func TestParse_EnvironmentExpansion(t *testing.T) {
	t.Setenv("RIDENAV_TEST_PORT", "7070")
	t.Setenv("RIDENAV_TEST_SOURCE", "overpass")

	cfg, err := config.Parse([]byte(`
server:
  port: ${RIDENAV_TEST_PORT}
hazards:
  source: ${RIDENAV_TEST_SOURCE:-postgres}
  postgresURL: ${RIDENAV_TEST_UNSET:-postgres://localhost/ridenav}
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Hazards.Source != config.HazardSourceOverpass {
		t.Errorf("expected %s, got %s", config.HazardSourceOverpass, cfg.Hazards.Source)
	}
	if cfg.Hazards.PostgresURL != "postgres://localhost/ridenav" {
		t.Errorf("expected default postgres URL, got %s", cfg.Hazards.PostgresURL)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checks := []struct {
		name     string
		got      any
		expected any
	}{
		{"port", cfg.Server.Port, 8080},
		{"level", cfg.Logging.Level, "info"},
		{"service", cfg.Logging.Service, "ridenav"},
		{"region", cfg.Region, geo.SanFrancisco},
		{"hazard source", cfg.Hazards.Source, config.HazardSourcePostgres},
		{"cache ttl", cfg.Hazards.CacheTTLSeconds, 60},
		{"cache capacity", cfg.Hazards.CacheCapacity, 256},
		{"live source", cfg.Live.Source, config.LiveSourcePush},
		{"poll interval", cfg.Live.GTFSRT.PollIntervalMS, 1000},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if c.got != c.expected {
				t.Errorf("expected %v, got %v", c.expected, c.got)
			}
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown hazard source", "hazards:\n  source: redis\n"},
		{"unknown live source", "live:\n  source: bluetooth\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"inverted region", "region:\n  minLatitude: 38\n  maxLatitude: 37\n  minLongitude: -122.5\n  maxLongitude: -122.3\n"},
		{"negative ttl", "hazards:\n  cacheTTLSeconds: -1\n"},
		{"bad valhalla url", "routing:\n  valhallaURL: not a url\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("expected validation error for %q", tt.yaml)
			}
		})
	}
}

func TestLoadAppConfig_DotEnv(t *testing.T) {
	const key = "RIDENAV_DOTENV_TEST_PORT"
	dir := t.TempDir()
	orig := config.EnvFile
	config.EnvFile = writeFile(t, dir, ".env", key+"=6060\n")
	defer func() {
		config.EnvFile = orig
		os.Unsetenv(key)
	}()

	p := writeFile(t, dir, "config.yml", "server:\n  port: ${"+key+":-1}\n")
	cfg, err := config.LoadAppConfig(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("expected port 6060 from .env, got %d", cfg.Server.Port)
	}
}
