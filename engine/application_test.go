package engine

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

func TestParseApplicationConfig(t *testing.T) {
	raw := []byte(`
name = "demo"
log_level = "debug"
renderer = "headless"
start_width = 800
workers = 0
uploads_per_frame = 5000
max_frames = 10
`)
	config, err := ParseApplicationConfig(raw)
	if err != nil {
		t.Fatalf("ParseApplicationConfig: %v", err)
	}
	if config.Name != "demo" || config.Renderer != "headless" || config.LogLevel != core.LogLevel("debug") {
		t.Fatalf("fields not decoded: %+v", config)
	}
	if config.StartWidth != 800 || config.StartHeight != 720 {
		t.Fatalf("expected decoded width and default height, got %dx%d", config.StartWidth, config.StartHeight)
	}
	if config.Workers != 1 || config.UploadsPerFrame != 1024 {
		t.Fatalf("expected clamped values, got workers=%d uploads=%d", config.Workers, config.UploadsPerFrame)
	}
	if config.MaxFrames != 10 {
		t.Fatalf("unexpected max frames %d", config.MaxFrames)
	}
}

func TestParseApplicationConfigRejectsGarbage(t *testing.T) {
	if _, err := ParseApplicationConfig([]byte("workers = \"many\"")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if *config != *DefaultApplicationConfig() {
		t.Fatalf("expected defaults, got %+v", config)
	}
}
