package config

import (
	"time"
)

// DefaultConfigFile is looked up in the working directory when no --conf
// flag is given.
const DefaultConfigFile = "progindex.toml"

// Config represents the complete progindexd configuration
type Config struct {
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Ledger   LedgerConfig   `toml:"ledger" mapstructure:"ledger"`
	Index    IndexConfig    `toml:"index" mapstructure:"index"`
	Snapshot SnapshotConfig `toml:"snapshot" mapstructure:"snapshot"`
	Log      LogConfig      `toml:"log" mapstructure:"log"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// ServerConfig represents the [server] section
type ServerConfig struct {
	Bind        string        `toml:"bind" mapstructure:"bind"`
	Port        int           `toml:"port" mapstructure:"port"`
	Timeout     time.Duration `toml:"timeout" mapstructure:"timeout"`
	MaxSessions int           `toml:"max_sessions" mapstructure:"max_sessions"` // per-client index caches kept
	WebSocket   bool          `toml:"websocket" mapstructure:"websocket"`
	Admin       []string      `toml:"admin" mapstructure:"admin"` // IPs allowed to call admin methods
}

// LedgerConfig represents the [ledger] section
type LedgerConfig struct {
	Backend     string        `toml:"backend" mapstructure:"backend"` // solana | memory
	Endpoint    string        `toml:"endpoint" mapstructure:"endpoint"`
	Commitment  string        `toml:"commitment" mapstructure:"commitment"`
	Timeout     time.Duration `toml:"timeout" mapstructure:"timeout"`
	FixtureFile string        `toml:"fixture_file" mapstructure:"fixture_file"`
}

// IndexConfig represents the [index] section
type IndexConfig struct {
	ProgramID       string `toml:"program_id" mapstructure:"program_id"`
	RecordOffset    int    `toml:"record_offset" mapstructure:"record_offset"`
	PrefixLength    int    `toml:"prefix_length" mapstructure:"prefix_length"`
	DefaultPageSize int    `toml:"default_page_size" mapstructure:"default_page_size"`
	MaxPageSize     int    `toml:"max_page_size" mapstructure:"max_page_size"`
}

// SnapshotConfig represents the [snapshot] section
type SnapshotConfig struct {
	Enabled     bool          `toml:"enabled" mapstructure:"enabled"`
	Backend     string        `toml:"backend" mapstructure:"backend"` // pebble | leveldb | sqlite | postgres
	Path        string        `toml:"path" mapstructure:"path"`
	DSN         string        `toml:"dsn" mapstructure:"dsn"`
	Compression string        `toml:"compression" mapstructure:"compression"`
	MaxAge      time.Duration `toml:"max_age" mapstructure:"max_age"`
}

// LogConfig represents the [log] section
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
	Colors bool   `toml:"colors" mapstructure:"colors"`
	File   string `toml:"file" mapstructure:"file"`
}

// GetConfigPath returns the path of the loaded file, empty when only
// defaults and environment were used.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// IsAdmin reports whether ip may call admin methods.
func (s ServerConfig) IsAdmin(ip string) bool {
	for _, a := range s.Admin {
		if a == ip {
			return true
		}
	}
	return false
}
