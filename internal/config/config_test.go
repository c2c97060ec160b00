package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trucod.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000
cors_origins = ["https://truco.example"]

[snapshot]
path = "/var/lib/truco/state.json"
interval = "5s"

[game]
time_limit_ms = 1800000
trick_start_delay = "3s"

[log]
level = "debug"
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint(9000), c.Server.Port)
	require.Equal(t, []string{"https://truco.example"}, c.Server.CORSOrigins)
	require.Equal(t, "/var/lib/truco/state.json", c.Snapshot.Path)
	require.Equal(t, 5*time.Second, c.Snapshot.Interval)
	require.Equal(t, int64(1_800_000), c.Game.TimeLimitMs)
	require.Equal(t, 3*time.Second, c.Game.TrickStartDelay)
	require.Equal(t, "debug", c.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRUCO_PORT", "7777")
	t.Setenv("TRUCO_SNAPSHOT_PATH", "/tmp/world.json")
	t.Setenv("TRUCO_LOG_LEVEL", "trace")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, uint(7777), c.Server.Port)
	require.Equal(t, "/tmp/world.json", c.Snapshot.Path)
	require.Equal(t, "trace", c.Log.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"zero port":      "[server]\nport = 0\n",
		"short interval": "[snapshot]\ninterval = \"100ms\"\n",
		"no time limit":  "[game]\ntime_limit_ms = -1\n",
	} {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		require.Error(t, err, name)
	}
}
