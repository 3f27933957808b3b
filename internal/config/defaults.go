package config

import "github.com/spf13/viper"

// DefaultProgramID is the deployed intro program whose accounts are indexed.
const DefaultProgramID = "HdE95RSVsdb315jfJtaykXhXY478h53X6okDupVfY9yf"

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.max_sessions", 256)
	v.SetDefault("server.websocket", true)
	v.SetDefault("server.admin", []string{"127.0.0.1", "::1"})

	v.SetDefault("ledger.backend", "solana")
	v.SetDefault("ledger.endpoint", "https://api.devnet.solana.com")
	v.SetDefault("ledger.commitment", "confirmed")
	v.SetDefault("ledger.timeout", "15s")
	v.SetDefault("ledger.fixture_file", "")

	v.SetDefault("index.program_id", DefaultProgramID)
	v.SetDefault("index.record_offset", 1)
	v.SetDefault("index.prefix_length", 12)
	v.SetDefault("index.default_page_size", 10)
	v.SetDefault("index.max_page_size", 100)

	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.backend", "pebble")
	v.SetDefault("snapshot.path", "data/snapshots")
	v.SetDefault("snapshot.dsn", "")
	v.SetDefault("snapshot.compression", "lz4")
	v.SetDefault("snapshot.max_age", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.colors", true)
	v.SetDefault("log.file", "")
}
