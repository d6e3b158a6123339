package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/drone/envsubst"
	"github.com/go-playground/validator/v10"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// Config is the global application configuration
var Config AppConfig

// DefaultPaths are searched in order when LoadAppConfig gets no paths.
var DefaultPaths = []string{"config.yml", "./configs/config.yml"}

// EnvFile is loaded into the environment before the YAML is expanded.
// Variables already set are not overridden.
var EnvFile = ".env"

// LoadAppConfig loads, expands and validates the first config file found
// among paths and stores it in Config.
func LoadAppConfig(paths ...string) (*AppConfig, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	if err := gotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}

	var (
		data []byte
		err  error
		used string
	)
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			used = p
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", used, err)
	}
	Config = *cfg
	return cfg, nil
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (*AppConfig, error) {
	expanded, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand environment: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	// an unset region means the built-in one; it has to be in place before
	// validation since the zero box fails the ordering checks
	if cfg.Region.IsZero() {
		cfg.Region = geo.SanFrancisco
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "ridenav"
	}
	if c.Routing.ValhallaURL == "" {
		c.Routing.ValhallaURL = "http://localhost:8002"
	}
	if c.Routing.TimeoutMS == 0 {
		c.Routing.TimeoutMS = 10000
	}
	if c.Hazards.Source == "" {
		c.Hazards.Source = HazardSourcePostgres
	}
	if c.Hazards.OverpassURL == "" {
		c.Hazards.OverpassURL = "https://overpass-api.de/api/interpreter"
	}
	if c.Hazards.CacheTTLSeconds == 0 {
		c.Hazards.CacheTTLSeconds = 60
	}
	if c.Hazards.CacheCapacity == 0 {
		c.Hazards.CacheCapacity = 256
	}
	if c.Live.Source == "" {
		c.Live.Source = LiveSourcePush
	}
	if c.Live.GTFSRT.PollIntervalMS == 0 {
		c.Live.GTFSRT.PollIntervalMS = 1000
	}
}
