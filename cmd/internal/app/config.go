package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // json | pretty

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// DatabaseURL selects the store:
	// - postgres://... or postgresql://... -> pgx pool
	// - sqlite:<path or dsn>               -> gorm over SQLite
	// - empty                               -> in-memory SQLite
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// If true, PM_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("PM_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("PM_LOG_LEVEL", "info"),
		LogFormat: EnvString("PM_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("PM_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PM_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PM_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PM_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("PM_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("PM_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("PM_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("PM_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("PM_DB_AUTO_MIGRATE", false),

		CORSAllowedOrigins:   EnvList("PM_CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		CORSAllowCredentials: EnvBool("PM_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("PM_CORS_MAX_AGE_SECONDS", 600),

		RequireTokenHMAC: EnvBool("PM_REQUIRE_TOKEN_HMAC", false),
	}
}
