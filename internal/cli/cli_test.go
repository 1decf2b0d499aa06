package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"braidsbar/queue-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeCatalogue(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	content := "hours:\n  sunday:\n    open: \"13:30\"\n    close: \"19:30\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSlotCommand(t *testing.T) {
	catalogue := writeCatalogue(t)

	out, err := run(t, "slot", "--start", "2026-10-12T17:50", "--duration", "1h", "--timezone", "UTC", "--catalogue", catalogue)
	require.NoError(t, err)
	assert.Equal(t, "Tue 2026-10-13 09:30", strings.TrimSpace(out))

	out, err = run(t, "slot", "--start", "2026-10-17T17:00", "--duration", "2h", "--timezone", "UTC", "--catalogue", catalogue)
	require.NoError(t, err)
	assert.Equal(t, "Sun 2026-10-18 13:30", strings.TrimSpace(out))

	out, err = run(t, "slot", "--start", "2026-10-12T10:00", "--duration", "13h", "--timezone", "UTC", "--catalogue", catalogue)
	require.NoError(t, err)
	assert.Contains(t, out, "needs review")
}

func TestSlotCommandRejectsBadStart(t *testing.T) {
	_, err := run(t, "slot", "--start", "tomorrow", "--catalogue", writeCatalogue(t))
	require.Error(t, err)

	_, err = run(t, "slot", "--catalogue", writeCatalogue(t))
	require.Error(t, err)
}

func TestDistanceCommand(t *testing.T) {
	out, err := run(t, "distance", "--from", "madina", "--to", "Madina")
	require.NoError(t, err)
	assert.Equal(t, "0.00 km, about 15 min", strings.TrimSpace(out))

	_, err = run(t, "distance", "--from", "95,0", "--to", "accra")
	require.Error(t, err)

	_, err = run(t, "distance", "--from", "5.6", "--to", "accra")
	require.Error(t, err)
}

func TestParseCoordinates(t *testing.T) {
	got, err := parseCoordinates(" 5.6037, -0.1870 ")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Lat: 5.6037, Lng: -0.187}, got)

	got, err = parseCoordinates("accra")
	require.NoError(t, err)
	info, _ := models.LookupBranch(models.BranchAccra)
	assert.Equal(t, info.Coordinates, got)
}

func TestMigrateList(t *testing.T) {
	out, err := run(t, "migrate", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "001_init.sql")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "shouting", "json")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"service":"queue-service"`)
}
