// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "mediagate"
	DefaultPGSSLMode      = "disable"
	DefaultStreamingPort  = 1935
	DefaultOriginHTTPPort = 8080
	DefaultContentRoot    = "/usr/local/WowzaStreamingEngine/content"
	DefaultStagingDir     = "/tmp/mediagate-uploads"
	DefaultMaxUploadBytes = 2 << 30
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Origin   OriginConfig   `toml:"origin"`
	Storage  StorageConfig  `toml:"storage"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds the JWT verification secret.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// OriginConfig holds streaming-origin defaults and request budgets.
// DefaultHost and DefaultPassword are the process-wide fallback used when a
// tenant has no assigned origin server; every use of them is logged as a
// degraded-mode event.
type OriginConfig struct {
	DefaultHost           string `toml:"default_host"`
	AdminUser             string `toml:"admin_user"`
	DefaultPassword       string `toml:"default_password"`
	StreamingPort         int    `toml:"streaming_port"`
	HTTPPort              int    `toml:"http_port"`
	VODApplication        string `toml:"vod_application"`
	LiveApplication       string `toml:"live_application"`
	BrandApplication      string `toml:"brand_application"`
	PrimaryTimeoutSeconds int    `toml:"primary_timeout_seconds"`
	ProbeTimeoutSeconds   int    `toml:"probe_timeout_seconds"`
}

// StorageConfig holds the local content root, the shared staging directory,
// and upload limits. RemoteContentRoot is the content root on origin servers.
type StorageConfig struct {
	ContentRoot       string `toml:"content_root"`
	RemoteContentRoot string `toml:"remote_content_root"`
	StagingDir        string `toml:"staging_dir"`
	MaxUploadBytes    int64  `toml:"max_upload_bytes"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Origin: OriginConfig{
			AdminUser:             "admin",
			StreamingPort:         DefaultStreamingPort,
			HTTPPort:              DefaultOriginHTTPPort,
			VODApplication:        "vod",
			LiveApplication:       "live",
			BrandApplication:      "samcast",
			PrimaryTimeoutSeconds: 30,
			ProbeTimeoutSeconds:   10,
		},
		Storage: StorageConfig{
			ContentRoot:       DefaultContentRoot,
			RemoteContentRoot: DefaultContentRoot,
			StagingDir:        DefaultStagingDir,
			MaxUploadBytes:    DefaultMaxUploadBytes,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
