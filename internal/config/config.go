package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type RepositoryBackend string

const (
	RepositoryMock   RepositoryBackend = "mock"
	RepositoryRemote RepositoryBackend = "remote"
)

type DraftBackend string

const (
	DraftSQLite DraftBackend = "sqlite"
	DraftRedis  DraftBackend = "redis"
	DraftMemory DraftBackend = "memory"
)

type AutosaveMode string

const (
	AutosaveImmediate AutosaveMode = "immediate"
	AutosaveIdle      AutosaveMode = "idle"
)

type Config struct {
	Repository RepositoryConfig `toml:"repository"`
	Drafts     DraftsConfig     `toml:"drafts"`
	Board      BoardConfig      `toml:"board"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
}

type RepositoryConfig struct {
	Backend           RepositoryBackend `toml:"backend"`
	Latency           string            `toml:"latency"`
	UpdateFailureRate float64           `toml:"update_failure_rate"`
	RemoteURL         string            `toml:"remote_url"`
	EventsURL         string            `toml:"events_url"`
	Timeout           string            `toml:"timeout"`
}

type DraftsConfig struct {
	Backend   DraftBackend `toml:"backend"`
	Path      string       `toml:"path"`
	RedisAddr string       `toml:"redis_addr"`
	RedisKey  string       `toml:"redis_key"`
	Autosave  AutosaveMode `toml:"autosave"`
	IdleDelay string       `toml:"idle_delay"`
}

type BoardConfig struct {
	DragThreshold int    `toml:"drag_threshold"` // cells
	CloseDelay    string `toml:"close_delay"`
}

type ServerConfig struct {
	HTTPBind       string   `toml:"http_bind"`
	APIEndpoint    string   `toml:"api_endpoint"`
	MCPEndpoint    string   `toml:"mcp_endpoint"`
	EventsEndpoint string   `toml:"events_endpoint"`
	CORSOrigins    []string `toml:"cors_origins"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default(dbPath string) Config {
	return Config{
		Repository: RepositoryConfig{
			Backend: RepositoryMock,
			Latency: "300ms",
			Timeout: "10s",
		},
		Drafts: DraftsConfig{
			Backend:   DraftSQLite,
			Path:      dbPath,
			RedisAddr: "127.0.0.1:6379",
			RedisKey:  "taskboard:taskDraft",
			Autosave:  AutosaveIdle,
			IdleDelay: "500ms",
		},
		Board: BoardConfig{
			DragThreshold: 1,
			CloseDelay:    "200ms",
		},
		Server: ServerConfig{
			HTTPBind:       "127.0.0.1:8080",
			APIEndpoint:    "/api/v1",
			MCPEndpoint:    "/mcp",
			EventsEndpoint: "/events",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".taskboard/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Repository.Backend {
	case RepositoryMock:
	case RepositoryRemote:
		if strings.TrimSpace(c.Repository.RemoteURL) == "" {
			return errors.New("repository.remote_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("invalid repository.backend: %q", c.Repository.Backend)
	}
	if c.Repository.UpdateFailureRate < 0 || c.Repository.UpdateFailureRate > 1 {
		return fmt.Errorf("repository.update_failure_rate must be within [0, 1]: %v", c.Repository.UpdateFailureRate)
	}
	if _, err := parseDuration("repository.latency", c.Repository.Latency); err != nil {
		return err
	}
	if _, err := parseDuration("repository.timeout", c.Repository.Timeout); err != nil {
		return err
	}

	switch c.Drafts.Backend {
	case DraftSQLite:
		if strings.TrimSpace(c.Drafts.Path) == "" {
			return errors.New("drafts.path is required for the sqlite backend")
		}
	case DraftRedis:
		if strings.TrimSpace(c.Drafts.RedisAddr) == "" {
			return errors.New("drafts.redis_addr is required for the redis backend")
		}
	case DraftMemory:
	default:
		return fmt.Errorf("invalid drafts.backend: %q", c.Drafts.Backend)
	}
	switch c.Drafts.Autosave {
	case AutosaveImmediate, AutosaveIdle:
	default:
		return fmt.Errorf("invalid drafts.autosave: %q", c.Drafts.Autosave)
	}
	if _, err := parseDuration("drafts.idle_delay", c.Drafts.IdleDelay); err != nil {
		return err
	}

	if c.Board.DragThreshold < 0 {
		return fmt.Errorf("board.drag_threshold must be >= 0")
	}
	if _, err := parseDuration("board.close_delay", c.Board.CloseDelay); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// LatencyDuration returns the simulated mock latency.
func (c Config) LatencyDuration() time.Duration {
	d, _ := parseDuration("repository.latency", c.Repository.Latency)
	return d
}

// TimeoutDuration returns the remote request timeout.
func (c Config) TimeoutDuration() time.Duration {
	d, _ := parseDuration("repository.timeout", c.Repository.Timeout)
	return d
}

// IdleDelayDuration returns the draft autosave idle delay.
func (c Config) IdleDelayDuration() time.Duration {
	d, _ := parseDuration("drafts.idle_delay", c.Drafts.IdleDelay)
	return d
}

// CloseDelayDuration returns the modal close animation delay.
func (c Config) CloseDelayDuration() time.Duration {
	d, _ := parseDuration("board.close_delay", c.Board.CloseDelay)
	return d
}

// parseDuration accepts an empty value as zero.
func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0: %q", field, raw)
	}
	return d, nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureConfigDir creates the directory holding path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
