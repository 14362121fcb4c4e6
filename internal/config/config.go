// Package config loads the optional lipsync.toml configuration file and
// fills the rest with defaults. Credentials never live in the file; they
// come from the environment (RUNPOD_API_KEY, BEAM_TOKEN), optionally via a
// .env loaded at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Provider names accepted by the pipeline.
const (
	ProviderRunPod = "runpod"
	ProviderBeam   = "beam"
)

// On-error policies for a batch run.
const (
	OnErrorFailFast = "fail-fast"
	OnErrorContinue = "continue"
)

// Chunking controls how the source audio is split.
type Chunking struct {
	TargetSeconds float64 `toml:"target_seconds"`
	MinSilenceMs  int     `toml:"min_silence_ms"`
	NoiseDB       float64 `toml:"noise_db"`
	KeepSilenceMs int     `toml:"keep_silence_ms"`
}

// Render controls the remote rendering jobs.
type Render struct {
	Provider      string `toml:"provider"`
	EndpointID    string `toml:"endpoint_id"`
	QueueURL      string `toml:"queue_url"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	Prompt        string `toml:"prompt"`
	ForceOffload  bool   `toml:"force_offload"`
	PollSeconds   int    `toml:"poll_seconds"`
	JobTimeoutMin int    `toml:"job_timeout_minutes"`
	Workers       int    `toml:"workers"`
	OnError       string `toml:"on_error"`
}

// Output controls where run artifacts land.
type Output struct {
	WorkDir string `toml:"work_dir"`
}

// Config is the full configuration surface of a pipeline run.
type Config struct {
	Chunking Chunking `toml:"chunking"`
	Render   Render   `toml:"render"`
	Output   Output   `toml:"output"`
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Chunking: Chunking{
			TargetSeconds: 45,
			MinSilenceMs:  500,
			NoiseDB:       -40,
			KeepSilenceMs: 200,
		},
		Render: Render{
			Provider:      ProviderRunPod,
			Width:         384,
			Height:        576,
			PollSeconds:   10,
			JobTimeoutMin: 30,
			Workers:       1,
			OnError:       OnErrorFailFast,
		},
		Output: Output{
			WorkDir: ".",
		},
	}
}

// Load reads the TOML file at path, merged over defaults. A missing file is
// not an error when path is the default location; the defaults are returned
// and exists is false. An explicitly named file must exist.
func Load(path string, explicit bool) (Config, bool, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, false, nil
		}
		return cfg, false, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, true, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, true, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, true, nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Chunking.TargetSeconds <= 0 {
		return errors.New("chunking.target_seconds must be positive")
	}
	if c.Chunking.MinSilenceMs <= 0 {
		return errors.New("chunking.min_silence_ms must be positive")
	}
	if c.Chunking.KeepSilenceMs < 0 {
		return errors.New("chunking.keep_silence_ms must not be negative")
	}

	switch c.Render.Provider {
	case ProviderRunPod, ProviderBeam:
	default:
		return fmt.Errorf("render.provider must be %q or %q, got %q",
			ProviderRunPod, ProviderBeam, c.Render.Provider)
	}

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New("render.width and render.height must be positive")
	}
	if c.Render.PollSeconds <= 0 {
		return errors.New("render.poll_seconds must be positive")
	}
	if c.Render.JobTimeoutMin <= 0 {
		return errors.New("render.job_timeout_minutes must be positive")
	}
	if c.Render.Workers <= 0 {
		return errors.New("render.workers must be positive")
	}

	switch c.Render.OnError {
	case OnErrorFailFast, OnErrorContinue:
	default:
		return fmt.Errorf("render.on_error must be %q or %q, got %q",
			OnErrorFailFast, OnErrorContinue, c.Render.OnError)
	}
	return nil
}

// TargetDuration returns the chunk target as a time.Duration.
func (c *Config) TargetDuration() time.Duration {
	return time.Duration(c.Chunking.TargetSeconds * float64(time.Second))
}

// MinSilence returns the minimum silence length as a time.Duration.
func (c *Config) MinSilence() time.Duration {
	return time.Duration(c.Chunking.MinSilenceMs) * time.Millisecond
}

// KeepSilence returns the retained silence padding as a time.Duration.
func (c *Config) KeepSilence() time.Duration {
	return time.Duration(c.Chunking.KeepSilenceMs) * time.Millisecond
}

// PollInterval returns the delay between job status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Render.PollSeconds) * time.Second
}

// JobTimeout returns the per-chunk wall-clock budget.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Render.JobTimeoutMin) * time.Minute
}
