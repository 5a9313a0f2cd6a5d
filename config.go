package templog

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the two documented runtime settings.
const (
	DefaultDBPath   = "templog.sqlite3"
	DefaultInterval = 10 * time.Second
)

// Config is the process configuration, passed explicitly to whoever
// needs it instead of read ambiently.
type Config struct {
	// DBPath is the SQLite store file. TEMPLOG_DB.
	DBPath string

	// Interval is the polling cadence. TEMPLOG_INTERVAL, whole
	// seconds.
	Interval time.Duration

	// ListenAddr enables the live monitor HTTP server when non-empty.
	// TEMPLOG_LISTEN.
	ListenAddr string

	// DevicesFile is an optional YAML catalog overriding the built-in
	// one. TEMPLOG_DEVICES.
	DevicesFile string
}

// LoadConfig reads configuration from the environment, honoring a
// .env file in the working directory when present.
func LoadConfig() Config {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	return Config{
		DBPath:      getEnv("TEMPLOG_DB", DefaultDBPath),
		Interval:    time.Duration(getSeconds("TEMPLOG_INTERVAL", 10)) * time.Second,
		ListenAddr:  getEnv("TEMPLOG_LISTEN", ""),
		DevicesFile: getEnv("TEMPLOG_DEVICES", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getSeconds(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
