package driven

import "github.com/custodia-labs/dedup-cli/internal/core/domain"

// ConfigStore loads and persists engine configuration.
// Backed by a TOML file in the dedup config directory.
type ConfigStore interface {
	// Engine returns the engine settings, with defaults applied for
	// anything the file does not set.
	Engine() domain.EngineSettings

	// SetEngine replaces the engine settings.
	SetEngine(s domain.EngineSettings) error

	// DataDir returns the directory for persistent state.
	DataDir() string

	// Save writes the configuration to disk.
	Save() error
}
