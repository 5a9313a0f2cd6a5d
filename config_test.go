package templog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"TEMPLOG_DB", "TEMPLOG_INTERVAL", "TEMPLOG_LISTEN", "TEMPLOG_DEVICES"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Empty(t, cfg.ListenAddr)
	assert.Empty(t, cfg.DevicesFile)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TEMPLOG_DB", "/tmp/lab.sqlite3")
	t.Setenv("TEMPLOG_INTERVAL", "2")
	t.Setenv("TEMPLOG_LISTEN", "127.0.0.1:8099")
	t.Setenv("TEMPLOG_DEVICES", "devices.yaml")

	cfg := LoadConfig()
	assert.Equal(t, "/tmp/lab.sqlite3", cfg.DBPath)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, "127.0.0.1:8099", cfg.ListenAddr)
	assert.Equal(t, "devices.yaml", cfg.DevicesFile)
}

func TestLoadConfigRejectsBadInterval(t *testing.T) {
	t.Setenv("TEMPLOG_DB", "")
	t.Setenv("TEMPLOG_INTERVAL", "soon")
	assert.Equal(t, DefaultInterval, LoadConfig().Interval)

	t.Setenv("TEMPLOG_INTERVAL", "-5")
	assert.Equal(t, DefaultInterval, LoadConfig().Interval)
}
