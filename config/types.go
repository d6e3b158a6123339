package config

import "github.com/theoremus-urban-solutions/ridenav/geo"

// Hazard store backends.
const (
	HazardSourcePostgres = "postgres"
	HazardSourceOverpass = "overpass"
)

// Live position source backends.
const (
	LiveSourcePush   = "push"
	LiveSourceKafka  = "kafka"
	LiveSourceGTFSRT = "gtfsrt"
)

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// LoggingConfig selects the log level and service name
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Service string `yaml:"service"`
}

// RoutingConfig points at the Valhalla routing engine
type RoutingConfig struct {
	ValhallaURL string `yaml:"valhallaURL" validate:"omitempty,url"`
	TimeoutMS   int    `yaml:"timeoutMS" validate:"gte=0"`
}

// HazardsConfig selects and tunes the hazard zone store
type HazardsConfig struct {
	Source          string `yaml:"source" validate:"omitempty,oneof=postgres overpass"`
	PostgresURL     string `yaml:"postgresURL"`
	OverpassURL     string `yaml:"overpassURL" validate:"omitempty,url"`
	CacheTTLSeconds int    `yaml:"cacheTTLSeconds" validate:"gte=0"`
	CacheCapacity   int    `yaml:"cacheCapacity" validate:"gte=0"`
	QueryTimeoutMS  int    `yaml:"queryTimeoutMS" validate:"gte=0"`
}

// KafkaConfig describes the topic carrying device fixes
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	GroupID   string   `yaml:"groupID"`
	DeviceKey string   `yaml:"deviceKey"`
}

// GTFSRTConfig describes a GTFS-Realtime VehiclePositions feed
type GTFSRTConfig struct {
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	VehicleID           string `yaml:"vehicleID"`
	PollIntervalMS      int    `yaml:"pollIntervalMS" validate:"gte=0"`
}

// LiveConfig selects where device fixes come from
type LiveConfig struct {
	Source string       `yaml:"source" validate:"omitempty,oneof=push kafka gtfsrt"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	GTFSRT GTFSRTConfig `yaml:"gtfsrt"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Region  geo.Region    `yaml:"region"`
	Routing RoutingConfig `yaml:"routing"`
	Hazards HazardsConfig `yaml:"hazards"`
	Live    LiveConfig    `yaml:"live"`
}
