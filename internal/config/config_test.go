package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "DB_DSN", "TIMEZONE", "NO_SHOW_GRACE_SECONDS", "RATE_LIMIT_PER_MIN", "LOG_LEVEL", "REDIS_URL", "AMQP_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "Africa/Accra", cfg.Location.String())
	assert.Equal(t, 30*time.Minute, cfg.NoShowGrace)
	assert.Equal(t, time.Minute, cfg.NoShowInterval)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 5, cfg.PhoneRateLimitBurst)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultCataloguePath, cfg.CataloguePath)
}

func TestLoadOverridesAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\nNO_SHOW_GRACE_SECONDS=0\n"), 0o600))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PORT", "")
	t.Setenv("NO_SHOW_GRACE_SECONDS", "")
	os.Unsetenv("PORT")
	os.Unsetenv("NO_SHOW_GRACE_SECONDS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Zero(t, cfg.NoShowGrace)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30, cfg.RateLimitBurst)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_FORMAT", "xml")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LOG_FORMAT", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseCatalogue(t *testing.T) {
	data := []byte(`
hours:
  Saturday:
    open: "10:00"
    close: "16:00"
styles:
  - id: s1
    name: Classic Knotless Braids
    category: Knotless
    duration_minutes: 240
inventory:
  - id: i1
    name: X-pression
    price: 45
    stock_count: 50
`)
	catalogue, err := ParseCatalogue(data)
	require.NoError(t, err)
	require.Len(t, catalogue.Styles, 1)
	assert.Equal(t, "s1", catalogue.Styles[0].StyleID)
	assert.Equal(t, 240, catalogue.Styles[0].DurationMinutes)
	require.Len(t, catalogue.Inventory, 1)
	assert.Equal(t, 50, catalogue.Inventory[0].StockCount)

	week, err := catalogue.Week()
	require.NoError(t, err)
	assert.Equal(t, "10:00", week[time.Saturday].Open.String())
	assert.Equal(t, "16:00", week[time.Saturday].Close.String())
	assert.Equal(t, "13:30", week[time.Sunday].Open.String())
}

func TestParseCatalogueRejects(t *testing.T) {
	cases := map[string]string{
		"unknown category": "styles:\n  - name: X\n    category: Weaves\n    duration_minutes: 60\n",
		"zero duration":    "styles:\n  - name: X\n    category: Twists\n    duration_minutes: 0\n",
		"negative stock":   "inventory:\n  - name: X\n    stock_count: -1\n",
		"bad weekday":      "hours:\n  funday:\n    open: \"09:00\"\n    close: \"17:00\"\n",
		"closes first":     "hours:\n  monday:\n    open: \"17:00\"\n    close: \"09:00\"\n",
		"bad yaml":         "styles: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogue([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogueFile(t *testing.T) {
	catalogue, err := LoadCatalogue(filepath.Join("..", "..", DefaultCataloguePath))
	require.NoError(t, err)
	assert.Len(t, catalogue.Styles, 4)
	assert.Len(t, catalogue.Inventory, 4)

	_, err = LoadCatalogue(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	empty, err := LoadCatalogue(DefaultCataloguePath)
	require.NoError(t, err)
	assert.Empty(t, empty.Styles)
}
