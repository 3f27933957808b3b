package config

import (
	"fmt"
	"slices"

	"github.com/LeJamon/goProgIndex/internal/ledger"
	"github.com/LeJamon/goProgIndex/internal/storage"
	"github.com/LeJamon/goProgIndex/internal/storage/compression"
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := config.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger config validation failed: %w", err)
	}
	if err := config.Index.Validate(); err != nil {
		return fmt.Errorf("index config validation failed: %w", err)
	}
	if err := config.Snapshot.Validate(); err != nil {
		return fmt.Errorf("snapshot config validation failed: %w", err)
	}
	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}
	return nil
}

// Validate checks the [server] section
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if s.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1")
	}
	return nil
}

// Validate checks the [ledger] section
func (l *LedgerConfig) Validate() error {
	switch l.Backend {
	case "solana":
		if l.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the solana backend")
		}
		switch l.Commitment {
		case "processed", "confirmed", "finalized":
		default:
			return fmt.Errorf("invalid commitment %q (valid: processed, confirmed, finalized)", l.Commitment)
		}
	case "memory":
	default:
		return fmt.Errorf("invalid backend %q (valid: solana, memory)", l.Backend)
	}
	if l.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// Validate checks the [index] section
func (i *IndexConfig) Validate() error {
	if _, err := ledger.ParseHandle(i.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id %q: %w", i.ProgramID, err)
	}
	if i.RecordOffset < 0 {
		return fmt.Errorf("record_offset cannot be negative")
	}
	// the length prefix must fit in the window for ordering to work
	if i.PrefixLength < 4 {
		return fmt.Errorf("prefix_length must be at least 4, got %d", i.PrefixLength)
	}
	if i.DefaultPageSize < 1 || i.MaxPageSize < 1 {
		return fmt.Errorf("page sizes must be at least 1")
	}
	if i.DefaultPageSize > i.MaxPageSize {
		return fmt.Errorf("default_page_size %d exceeds max_page_size %d", i.DefaultPageSize, i.MaxPageSize)
	}
	return nil
}

// ProgramHandle returns the parsed program id. Call after Validate.
func (i *IndexConfig) ProgramHandle() ledger.Handle {
	return ledger.MustParseHandle(i.ProgramID)
}

// Validate checks the [snapshot] section. A disabled store is not checked.
func (s *SnapshotConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if !slices.Contains(storage.Backends, s.Backend) {
		return fmt.Errorf("invalid backend %q (valid: %v)", s.Backend, storage.Backends)
	}
	if s.Backend == "postgres" && s.DSN == "" {
		return fmt.Errorf("dsn is required for the postgres backend")
	}
	if s.Backend != "postgres" && s.Path == "" && s.DSN == "" {
		return fmt.Errorf("path is required for the %s backend", s.Backend)
	}
	if !slices.Contains(compression.Available(), s.Compression) {
		return fmt.Errorf("invalid compression %q (valid: %v)", s.Compression, compression.Available())
	}
	if s.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative")
	}
	return nil
}

// Validate checks the [log] section
func (l *LogConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q (valid: debug, info, warn, error)", l.Level)
	}
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid format %q (valid: console, json)", l.Format)
	}
	return nil
}
