// Package config loads the service configuration from a YAML file and
// fills in defaults for anything the file leaves out.
package config

import (
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/edustack/registrar/internal/archive"
	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/errs"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP bind address, host:port.
	Listen string `yaml:"listen"`

	Log      Log      `yaml:"log"`
	Database Database `yaml:"database"`
	Archive  *Archive `yaml:"archive,omitempty"`
}

// Log configures the logger.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// Database holds the default connection parameters offered to clients.
// A connect request may override any of them.
type Database struct {
	Driver         string `yaml:"driver"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"sslmode"`
	ConnectTimeout int    `yaml:"connect_timeout"`
}

// Archive configures the optional snapshot export target. When the section
// is absent, the archive endpoint is disabled.
type Archive struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	db := database.DefaultConfig()
	return &Config{
		Listen: ":8080",
		Log:    Log{Level: "info", Format: "console"},
		Database: Database{
			Driver:         string(db.Driver),
			Host:           db.Host,
			Port:           db.Port,
			Name:           db.Database,
			User:           db.User,
			SSLMode:        string(db.SSLMode),
			ConnectTimeout: int(db.ConnectTimeout / time.Second),
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
	}
	return cfg, nil
}

// DatabaseConfig converts the database section into connection parameters.
func (c *Config) DatabaseConfig() *database.Config {
	dc := database.DefaultConfig()
	dc.Driver = database.Driver(c.Database.Driver)
	dc.Host = c.Database.Host
	dc.Port = c.Database.Port
	dc.Database = c.Database.Name
	dc.User = c.Database.User
	dc.Password = c.Database.Password
	dc.SSLMode = database.SSLMode(c.Database.SSLMode)
	if c.Database.ConnectTimeout > 0 {
		dc.ConnectTimeout = time.Duration(c.Database.ConnectTimeout) * time.Second
	}
	return dc
}

// ArchiveConfig converts the archive section, or nil when absent.
func (c *Config) ArchiveConfig() *archive.Config {
	if c.Archive == nil {
		return nil
	}
	return &archive.Config{
		Endpoint:  c.Archive.Endpoint,
		AccessKey: c.Archive.AccessKey,
		SecretKey: c.Archive.SecretKey,
		UseSSL:    c.Archive.UseSSL,
		Bucket:    c.Archive.Bucket,
	}
}
