package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/codeyousef/materia/gpu/mathutil"
)

// Config drives instance and surface setup. Everything has a usable
// default so a missing file still boots the offscreen path.
type Config struct {
	AppName          string `toml:"app_name"`
	Width            uint32 `toml:"width"`
	Height           uint32 `toml:"height"`
	Resizable        bool   `toml:"resizable"`
	Headless         bool   `toml:"headless"`
	EnableValidation bool   `toml:"enable_validation"`
	PresentMode      string `toml:"present_mode"`
	FramesInFlight   uint32 `toml:"frames_in_flight"`
	LogLevel         string `toml:"log_level"`
	ShaderDir        string `toml:"shader_dir"`
	WatchShaders     bool   `toml:"watch_shaders"`
	AssetsDir        string `toml:"assets_dir"`
}

func Default() *Config {
	return &Config{
		AppName:          "Materia",
		Width:            800,
		Height:           600,
		Resizable:        true,
		Headless:         false,
		EnableValidation: false,
		PresentMode:      "fifo",
		FramesInFlight:   2,
		LogLevel:         "debug",
		ShaderDir:        "assets/shaders",
		WatchShaders:     false,
		AssetsDir:        "assets",
	}
}

// Load reads a TOML file over the defaults. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize pulls out-of-range values back to something the swapchain
// can actually run with.
func (c *Config) normalize() {
	c.FramesInFlight = mathutil.Clamp(c.FramesInFlight, 1, 3)
	if c.Width == 0 {
		c.Width = 800
	}
	if c.Height == 0 {
		c.Height = 600
	}
	if c.AppName == "" {
		c.AppName = "Materia"
	}
	if c.PresentMode != "fifo" && c.PresentMode != "mailbox" {
		c.PresentMode = "fifo"
	}
}
