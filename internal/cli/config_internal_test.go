package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alnah/go-lipsync/internal/config"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lipsync.toml")
	content := `
[render]
provider = "runpod"
endpoint_id = "ep-from-file"
workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(runFlags{
		configPath: path,
		provider:   "beam",
		queueURL:   "https://queue.example.com",
		workers:    4,
		onError:    config.OnErrorContinue,
		workDir:    dir,
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Render.Provider != config.ProviderBeam {
		t.Errorf("Provider = %q, flag should override file", cfg.Render.Provider)
	}
	if cfg.Render.QueueURL != "https://queue.example.com" {
		t.Errorf("QueueURL = %q", cfg.Render.QueueURL)
	}
	if cfg.Render.Workers != 4 {
		t.Errorf("Workers = %d, flag should override file", cfg.Render.Workers)
	}
	if cfg.Render.OnError != config.OnErrorContinue {
		t.Errorf("OnError = %q", cfg.Render.OnError)
	}
	// File values without flag overrides survive.
	if cfg.Render.EndpointID != "ep-from-file" {
		t.Errorf("EndpointID = %q, want value from file", cfg.Render.EndpointID)
	}
}

func TestLoadConfig_InvalidOverrideRejected(t *testing.T) {
	_, err := loadConfig(runFlags{onError: "shrug"})
	if err == nil {
		t.Fatal("expected validation error for bad on-error policy")
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := loadConfig(runFlags{configPath: filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
