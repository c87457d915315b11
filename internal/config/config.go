// Package config loads trainer settings from a YAML file and the environment.
//
// Precedence is defaults, then the file, then TRAINER_* variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"trainer/sim/services/input"
	"trainer/sim/service"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Log    Log    `yaml:"log"`
	Window Window `yaml:"window"`
	Input  Input  `yaml:"input"`
	Status Status `yaml:"status"`
	Mocap  Mocap  `yaml:"mocap"`
	Scene  Scene  `yaml:"scene"`
}

type Log struct {
	Level      string `yaml:"level"       env:"TRAINER_LOG_LEVEL"`
	Format     string `yaml:"format"      env:"TRAINER_LOG_FORMAT"`
	File       string `yaml:"file"        env:"TRAINER_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"TRAINER_LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"TRAINER_LOG_MAX_BACKUPS"`
}

type Window struct {
	Title  string `yaml:"title"  env:"TRAINER_WINDOW_TITLE"`
	Width  int    `yaml:"width"  env:"TRAINER_WINDOW_WIDTH"`
	Height int    `yaml:"height" env:"TRAINER_WINDOW_HEIGHT"`
	TPS    int    `yaml:"tps"    env:"TRAINER_WINDOW_TPS"`
}

type Input struct {
	Type        input.Type     `yaml:"type"        env:"TRAINER_INPUT_TYPE"`
	Sensitivity float64        `yaml:"sensitivity" env:"TRAINER_INPUT_SENSITIVITY"`
	Interval    time.Duration  `yaml:"interval"    env:"TRAINER_INPUT_INTERVAL"`
	Policy      service.Policy `yaml:"policy"      env:"TRAINER_INPUT_POLICY"`
}

type Status struct {
	Interval time.Duration  `yaml:"interval" env:"TRAINER_STATUS_INTERVAL"`
	Policy   service.Policy `yaml:"policy"   env:"TRAINER_STATUS_POLICY"`
}

type Mocap struct {
	Enabled          bool           `yaml:"enabled"           env:"TRAINER_MOCAP_ENABLED"`
	URL              string         `yaml:"url"               env:"TRAINER_MOCAP_URL"`
	Interval         time.Duration  `yaml:"interval"          env:"TRAINER_MOCAP_INTERVAL"`
	HandshakeTimeout time.Duration  `yaml:"handshake_timeout" env:"TRAINER_MOCAP_HANDSHAKE_TIMEOUT"`
	Retry            time.Duration  `yaml:"retry"             env:"TRAINER_MOCAP_RETRY"`
	TrackIDs         []int          `yaml:"track_ids"         env:"TRAINER_MOCAP_TRACK_IDS" envSeparator:","`
	Policy           service.Policy `yaml:"policy"            env:"TRAINER_MOCAP_POLICY"`
}

type Scene struct {
	Controlled string   `yaml:"controlled" env:"TRAINER_SCENE_CONTROLLED"`
	Entities   []Entity `yaml:"entities"`
}

// Entity describes one scene entity. Rotation is (roll, yaw, pitch) in degrees.
type Entity struct {
	Name     string     `yaml:"name"`
	Shape    string     `yaml:"shape"`
	Size     [3]float64 `yaml:"size"`
	Color    [4]float64 `yaml:"color"`
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"`
	Tracked  bool       `yaml:"tracked"`
	TrackID  *int       `yaml:"track_id"`
}

func intp(v int) *int { return &v }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    Log{Level: "info", Format: "text", MaxSizeMB: 10, MaxBackups: 3},
		Window: Window{Title: "Trainer", Width: 1280, Height: 720, TPS: 60},
		Input: Input{
			Type:        input.Controller,
			Sensitivity: 1,
			Interval:    service.DefaultInterval,
			Policy:      service.PolicyLog,
		},
		Status: Status{Interval: time.Second, Policy: service.PolicyLog},
		Mocap: Mocap{
			URL:              "ws://127.0.0.1:8765/feed",
			Interval:         service.DefaultInterval,
			HandshakeTimeout: 2 * time.Second,
			Retry:            time.Second,
			Policy:           service.PolicyLog,
		},
		Scene: Scene{
			Controlled: "drone",
			Entities: []Entity{
				{Name: "floor", Shape: "grid", Size: [3]float64{20, 0, 20}, Color: [4]float64{0.5, 0.5, 0.5, 0.35}},
				{Name: "origin", Shape: "axes", Size: [3]float64{1, 1, 1}, Color: [4]float64{1, 1, 1, 0.8}},
				{Name: "drone", Shape: "box", Size: [3]float64{1, 0.3, 1.4}, Color: [4]float64{0.3, 0.6, 1, 1}, Position: [3]float64{0, 1, 0}},
				{Name: "wand", Shape: "marker", Size: [3]float64{0.4, 0.4, 0.4}, Color: [4]float64{1, 0.8, 0.2, 1}, Tracked: true, TrackID: intp(1)},
			},
		},
	}
}

// Load reads path (if not empty) over the defaults and applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(bytes.NewReader(b), &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode reads YAML into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return bad("log.format %q", c.Log.Format)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return bad("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.TPS <= 0 {
		return bad("window.tps %d", c.Window.TPS)
	}
	if s := c.Input.Sensitivity; s < input.MinSensitivity || s > input.MaxSensitivity {
		return bad("input.sensitivity %v not in [%v, %v]", s, input.MinSensitivity, input.MaxSensitivity)
	}
	for name, d := range map[string]time.Duration{
		"input.interval":  c.Input.Interval,
		"status.interval": c.Status.Interval,
		"mocap.interval":  c.Mocap.Interval,
	} {
		if d <= 0 {
			return bad("%s must be positive", name)
		}
	}
	if c.Mocap.Enabled && c.Mocap.URL == "" {
		return bad("mocap.url required when mocap is enabled")
	}

	seen := make(map[string]bool, len(c.Scene.Entities))
	for i, e := range c.Scene.Entities {
		if e.Name == "" {
			return bad("scene.entities[%d] has no name", i)
		}
		if seen[e.Name] {
			return bad("duplicate entity %q", e.Name)
		}
		seen[e.Name] = true
		if _, err := e.Registry(); err != nil {
			return bad("entity %q: %v", e.Name, err)
		}
	}
	if c.Scene.Controlled != "" && !seen[c.Scene.Controlled] {
		return bad("controlled entity %q not in scene", c.Scene.Controlled)
	}
	return nil
}
