package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	API       APIConfig       `mapstructure:"api"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Bounds    BoundsConfig    `mapstructure:"bounds"`
	GeoServer GeoServerConfig `mapstructure:"geoserver"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DailySync string `mapstructure:"daily_sync"`
	Cleanup   string `mapstructure:"cleanup"`
}

// APIConfig covers the upstream Open311 endpoint.
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PageSize     int           `mapstructure:"page_size"`
	MaxPages     int           `mapstructure:"max_pages"`
	Status       string        `mapstructure:"status"`
	RequestsPerS float64       `mapstructure:"requests_per_second"`
}

type SyncConfig struct {
	MaxRetryAttempts int           `mapstructure:"max_retry_attempts"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	ValidateWorkers  int           `mapstructure:"validate_workers"`
	RunRetentionDays int           `mapstructure:"run_retention_days"`
	LayerName        string        `mapstructure:"layer_name"`
}

// BoundsConfig is the service-area bounding box in EPSG:3857 meters.
// Records whose coordinates fall outside it are stored without geometry.
type BoundsConfig struct {
	MinX float64 `mapstructure:"min_x"`
	MaxX float64 `mapstructure:"max_x"`
	MinY float64 `mapstructure:"min_y"`
	MaxY float64 `mapstructure:"max_y"`
}

type GeoServerConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Workspace string        `mapstructure:"workspace"`
	Datastore string        `mapstructure:"datastore"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// Connection parameters GeoServer uses to reach the PostGIS store.
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBSchema   string `mapstructure:"db_schema"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STL311")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_sync", "0 0 2 * * *")
	v.SetDefault("cron.cleanup", "0 0 3 * * *")
	v.SetDefault("api.base_url", "https://www.stlouis-mo.gov/powernap/stlouis/api.cfm")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.page_size", 1000)
	v.SetDefault("api.max_pages", 10)
	v.SetDefault("api.status", "open")
	v.SetDefault("api.requests_per_second", 1.0)
	v.SetDefault("sync.max_retry_attempts", 3)
	v.SetDefault("sync.initial_backoff", "5s")
	v.SetDefault("sync.max_backoff", "5m")
	v.SetDefault("sync.validate_workers", 4)
	v.SetDefault("sync.run_retention_days", 30)
	v.SetDefault("sync.layer_name", "service_requests")
	// St. Louis service area in EPSG:3857.
	v.SetDefault("bounds.min_x", -10060000.0)
	v.SetDefault("bounds.max_x", -10020000.0)
	v.SetDefault("bounds.min_y", 4600000.0)
	v.SetDefault("bounds.max_y", 4700000.0)
	v.SetDefault("geoserver.base_url", "http://localhost:8080/geoserver")
	v.SetDefault("geoserver.username", "admin")
	v.SetDefault("geoserver.password", "geoserver")
	v.SetDefault("geoserver.workspace", "stl311")
	v.SetDefault("geoserver.datastore", "stl311_db")
	v.SetDefault("geoserver.timeout", "15s")
	v.SetDefault("geoserver.db_host", "localhost")
	v.SetDefault("geoserver.db_port", "5432")
	v.SetDefault("geoserver.db_name", "stl311")
	v.SetDefault("geoserver.db_schema", "public")
	v.SetDefault("geoserver.db_user", "stl311")
	v.SetDefault("geoserver.db_password", "stl311")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
