package database

import (
	"time"

	"github.com/edustack/registrar/internal/errs"
)

// Driver identifies the wire-client implementation used to reach the
// database. The choice is cosmetic for callers: both drivers satisfy DB.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// SSLMode mirrors the libpq sslmode values. The MySQL driver maps these to
// its own tls parameter; the value is passed through, never validated
// against server capabilities.
type SSLMode string

const (
	SSLDisable SSLMode = "disable"
	SSLPrefer  SSLMode = "prefer"
	SSLRequire SSLMode = "require"
)

// Config holds all settings needed to connect to and pool a database.
// A Config is immutable once used to build a handle: reconnecting with
// different parameters always produces a new handle.
type Config struct {
	Driver   Driver
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  SSLMode

	// ConnectTimeout is the time limit for establishing a new connection,
	// including the health-check round trip. It is the only timeout this
	// layer enforces; per-query deadlines are the caller's business.
	ConnectTimeout time.Duration

	// Pool tuning
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns connection settings for a local development
// database named "university".
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Database:        "university",
		User:            "postgres",
		Password:        "",
		SSLMode:         SSLPrefer,
		ConnectTimeout:  5 * time.Second,
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// Validate checks the parts of the config this layer can judge without a
// round trip. Everything else (credentials, reachability) is the server's
// verdict, delivered by the connect-time ping.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown driver %q", c.Driver)
	}
	if c.Host == "" {
		return errs.New(errs.ErrKindInvalidInput, "host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errs.Newf(errs.ErrKindInvalidInput, "port %d out of range 1-65535", c.Port)
	}
	if c.Database == "" {
		return errs.New(errs.ErrKindInvalidInput, "database name is required")
	}
	if c.ConnectTimeout <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "connect timeout must be positive")
	}
	return nil
}

// DialectFor returns the SQL dialect matching a driver choice.
func DialectFor(d Driver) Dialect {
	if d == DriverMySQL {
		return DialectMySQL
	}
	return DialectPostgres
}
