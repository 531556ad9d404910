package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"notify"`
	Password string `env:"PASSWORD" envDefault:"notify"`
	Name     string `env:"NAME"     envDefault:"notify"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the progress snapshot cache.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
	// Enabled turns the Redis-backed cache on. When false the query service
	// falls back to an in-process cache.
	Enabled bool `env:"ENABLED" envDefault:"false"`
}

// CacheConfig tunes progress snapshot caching.
type CacheConfig struct {
	// TerminalTTL is how long terminal job snapshots stay cached.
	TerminalTTL time.Duration `env:"CACHE_TERMINAL_TTL" envDefault:"5m"`
}
