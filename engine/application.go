package engine

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// The application name used in windowing, if applicable.
	Name     string        `toml:"name"`
	LogLevel core.LogLevel `toml:"log_level"`
	// Renderer backend, "opengl" or "headless".
	Renderer string `toml:"renderer"`

	// Directory watched for loose asset files.
	AssetDir string `toml:"asset_dir"`
	// Optional asset pack consulted after AssetDir.
	PackFile string `toml:"pack_file"`

	Workers      int `toml:"workers"`
	JobQueueSize int `toml:"job_queue_size"`
	// Device uploads performed per frame at most.
	UploadsPerFrame int `toml:"uploads_per_frame"`
	// Stop after this many frames. Zero runs until the window closes.
	MaxFrames uint64 `toml:"max_frames"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:       100,
		StartPosY:       100,
		StartWidth:      1280,
		StartHeight:     720,
		Name:            "Alaska Engine",
		LogLevel:        core.LogLevelInfo,
		Renderer:        "opengl",
		AssetDir:        "assets",
		Workers:         4,
		JobQueueSize:    128,
		UploadsPerFrame: 8,
	}
}

// ParseApplicationConfig decodes raw TOML on top of the defaults.
func ParseApplicationConfig(raw []byte) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	if err := toml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("invalid application config: %w", err)
	}
	config.clamp()
	return config, nil
}

// LoadApplicationConfig reads the config file at path. A missing file yields
// the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		core.LogWarn("no config at '%s', using defaults", path)
		return DefaultApplicationConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return ParseApplicationConfig(raw)
}

func (c *ApplicationConfig) clamp() {
	c.StartWidth = core.Clamp(c.StartWidth, 64, 7680)
	c.StartHeight = core.Clamp(c.StartHeight, 64, 4320)
	c.Workers = core.Clamp(c.Workers, 1, 64)
	c.JobQueueSize = core.Clamp(c.JobQueueSize, 0, 1<<16)
	c.UploadsPerFrame = core.Clamp(c.UploadsPerFrame, 1, 1024)
}
