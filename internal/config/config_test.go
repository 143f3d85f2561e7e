package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/taskboard.db")
	if cfg.Drafts.Path != "/tmp/taskboard.db" {
		t.Fatalf("unexpected draft path %q", cfg.Drafts.Path)
	}
	if cfg.Repository.Backend != RepositoryMock || cfg.Drafts.Backend != DraftSQLite {
		t.Fatalf("unexpected backends %#v", cfg)
	}
	if cfg.LatencyDuration() != 300*time.Millisecond {
		t.Fatalf("LatencyDuration() = %s", cfg.LatencyDuration())
	}
	if cfg.IdleDelayDuration() != 500*time.Millisecond || cfg.Drafts.Autosave != AutosaveIdle {
		t.Fatalf("unexpected autosave defaults %#v", cfg.Drafts)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/taskboard.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Drafts.Path != defaults.Drafts.Path {
		t.Fatalf("expected default draft path, got %q", cfg.Drafts.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[repository]
backend = "remote"
remote_url = "http://127.0.0.1:9090/api/v1"
timeout = "3s"

[drafts]
backend = "redis"
redis_addr = "10.0.0.5:6379"
autosave = "immediate"

[board]
drag_threshold = 3
close_delay = "0s"

[server]
cors_origins = ["http://localhost:5173"]

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Repository.Backend != RepositoryRemote || cfg.Repository.RemoteURL != "http://127.0.0.1:9090/api/v1" {
		t.Fatalf("unexpected repository config %#v", cfg.Repository)
	}
	if cfg.TimeoutDuration() != 3*time.Second {
		t.Fatalf("TimeoutDuration() = %s", cfg.TimeoutDuration())
	}
	if cfg.Drafts.Backend != DraftRedis || cfg.Drafts.RedisKey != "taskboard:taskDraft" {
		t.Fatalf("unexpected drafts config %#v", cfg.Drafts)
	}
	if cfg.Drafts.Autosave != AutosaveImmediate {
		t.Fatalf("unexpected autosave %q", cfg.Drafts.Autosave)
	}
	if cfg.Board.DragThreshold != 3 || cfg.CloseDelayDuration() != 0 {
		t.Fatalf("unexpected board config %#v", cfg.Board)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.APIEndpoint != "/api/v1" {
		t.Fatalf("unexpected server config %#v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.DevFile.Enabled {
		t.Fatalf("unexpected logging config %#v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":      "[repository]\nbackend = \"carrier-pigeon\"\n",
		"remote url":   "[repository]\nbackend = \"remote\"\n",
		"failure rate": "[repository]\nupdate_failure_rate = 1.5\n",
		"duration":     "[drafts]\nidle_delay = \"soon\"\n",
		"autosave":     "[drafts]\nautosave = \"never\"\n",
		"drafts":       "[drafts]\nbackend = \"s3\"\n",
		"threshold":    "[board]\ndrag_threshold = -1\n",
		"level":        "[logging]\nlevel = \"loud\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db")); err == nil {
				t.Fatal("expected error for invalid config")
			}
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default("/tmp/taskboard.db")
	want.Drafts.Backend = DraftRedis
	want.Server.CORSOrigins = []string{"http://localhost:3000"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path, Default("/tmp/other.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Drafts.Backend != DraftRedis || got.Drafts.Path != "/tmp/taskboard.db" || len(got.Server.CORSOrigins) != 1 {
		t.Fatalf("unexpected round trip %#v", got)
	}

	bad := want
	bad.Board.DragThreshold = -2
	if err := Save(path, bad); err == nil {
		t.Fatal("expected Save() to reject invalid config")
	}
}
