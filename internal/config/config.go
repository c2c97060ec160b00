package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConf configures the HTTP/WebSocket listener.
type ServerConf struct {
	Port        uint     `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// SnapshotConf configures world-state persistence.
type SnapshotConf struct {
	Path     string        `toml:"path"`
	Interval time.Duration `toml:"interval"`
}

// GameConf carries process-wide game tuning; per-room knobs live in host
// settings.
type GameConf struct {
	TimeLimitMs     int64         `toml:"time_limit_ms"`
	TrickStartDelay time.Duration `toml:"trick_start_delay"`
}

// LogConf configures logging.
type LogConf struct {
	Level string `toml:"level"`
}

// Conf is the full server configuration.
type Conf struct {
	Server   ServerConf   `toml:"server"`
	Snapshot SnapshotConf `toml:"snapshot"`
	Game     GameConf     `toml:"game"`
	Log      LogConf      `toml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Conf {
	return Conf{
		Server: ServerConf{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Snapshot: SnapshotConf{
			Path:     "truco-state.json",
			Interval: 30 * time.Second,
		},
		Game: GameConf{
			TimeLimitMs:     3_600_000,
			TrickStartDelay: 10 * time.Second,
		},
		Log: LogConf{
			Level: "info",
		},
	}
}

// Load reads a TOML file if it exists, then applies environment overrides.
// A missing file at the default path is not an error.
func Load(path string) (Conf, error) {
	c := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return c, err
		default:
			defer file.Close()
			if _, err := toml.NewDecoder(file).Decode(&c); err != nil {
				return c, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	c.applyEnv()
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Conf) applyEnv() {
	if v := os.Getenv("TRUCO_PORT"); v != "" {
		if port, err := strconv.ParseUint(v, 10, 16); err == nil {
			c.Server.Port = uint(port)
		}
	}
	if v := os.Getenv("TRUCO_SNAPSHOT_PATH"); v != "" {
		c.Snapshot.Path = v
	}
	if v := os.Getenv("TRUCO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Conf) validate() error {
	if c.Server.Port == 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Snapshot.Interval < time.Second {
		return fmt.Errorf("snapshot interval %s too short", c.Snapshot.Interval)
	}
	if c.Game.TimeLimitMs <= 0 {
		return fmt.Errorf("invalid game time limit %d", c.Game.TimeLimitMs)
	}
	return nil
}
