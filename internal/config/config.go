package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultCatalogURL = "https://www.freetestapi.com/api/v1"

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	CatalogURL         string
	CatalogTimeoutSecs int
	CatalogRetryMax    int
	DisplayLimit       int
	DebounceMillis     int
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	// DBURL is optional; when empty the snapshot mirror is disabled.
	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
}

// MirrorEnabled reports whether a database was configured.
func (c Config) MirrorEnabled() bool { return c.DBURL != "" }

// Load reads configuration from environment variables, applying defaults and
// validation. A .env file in the working directory is read first when present;
// real environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		CatalogURL:         strings.TrimRight(getEnv("CATALOG_URL", defaultCatalogURL), "/"),
		CatalogTimeoutSecs: getEnvInt("CATALOG_TIMEOUT_SECS", 5),
		CatalogRetryMax:    getEnvInt("CATALOG_RETRY_MAX", 2),
		DisplayLimit:       getEnvInt("DISPLAY_LIMIT", 20),
		DebounceMillis:     getEnvInt("DEBOUNCE_MILLIS", 300),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBURL:              strings.TrimSpace(os.Getenv("DB_URL")),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 1),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	parsed, err := url.Parse(c.CatalogURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("CATALOG_URL must be an absolute http(s) URL")
	}
	if c.CatalogTimeoutSecs <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT_SECS must be positive")
	}
	if c.CatalogRetryMax < 0 {
		return fmt.Errorf("CATALOG_RETRY_MAX must be non-negative")
	}
	if c.DisplayLimit <= 0 || c.DisplayLimit > 100 {
		return fmt.Errorf("DISPLAY_LIMIT must be between 1 and 100")
	}
	if c.DebounceMillis <= 0 {
		return fmt.Errorf("DEBOUNCE_MILLIS must be positive")
	}
	if !c.MirrorEnabled() {
		return nil
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
