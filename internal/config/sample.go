package config

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed sample_config.toml
var sampleConfig string

// Sample returns the annotated sample configuration file.
func Sample() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
