package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framecore.toml")
	body := `
[window]
width = 800

[resources]
ttl = "5s"
workers = 2

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 720 {
		t.Fatalf("window = %+v", cfg.Window)
	}
	if cfg.Resources.TTL != 5*time.Second || cfg.Resources.Workers != 2 {
		t.Fatalf("resources = %+v", cfg.Resources)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFrameTime(t *testing.T) {
	if got := (LoopConfig{FrameRate: 50}).FrameTime(); got != 20*time.Millisecond {
		t.Fatalf("FrameTime = %v", got)
	}
	if got := (LoopConfig{}).FrameTime(); got != time.Second/60 {
		t.Fatalf("default FrameTime = %v", got)
	}
}
