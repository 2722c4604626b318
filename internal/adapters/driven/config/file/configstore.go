package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/dedup-cli/internal/core/domain"
	"github.com/custodia-labs/dedup-cli/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// fileConfig is the on-disk TOML layout. Omitted fields fall back to
// engine defaults, so a partial file stays valid across upgrades.
type fileConfig struct {
	DataDir string       `toml:"data_dir,omitempty"`
	Engine  engineConfig `toml:"engine"`
}

// engineConfig mirrors domain.EngineSettings in TOML-friendly types.
type engineConfig struct {
	NearThreshold         *float64 `toml:"near_threshold,omitempty"`
	SemanticThreshold     *float64 `toml:"semantic_threshold,omitempty"`
	MinHashPermutations   *int     `toml:"minhash_permutations,omitempty"`
	ShingleSize           *int     `toml:"shingle_size,omitempty"`
	LSHBands              *int     `toml:"lsh_bands,omitempty"`
	LSHRowsPerBand        *int     `toml:"lsh_rows_per_band,omitempty"`
	SemanticK             *int     `toml:"semantic_k,omitempty"`
	ProbeTimeoutSeconds   *float64 `toml:"probe_timeout_seconds,omitempty"`
	ProbeRateLimit        *float64 `toml:"probe_rate_limit,omitempty"`
	OnExact               *string  `toml:"on_exact,omitempty"`
	OnNear                *string  `toml:"on_near,omitempty"`
	OnSemantic            *string  `toml:"on_semantic,omitempty"`
	OnUnique              *string  `toml:"on_unique,omitempty"`
	AutoVersionMinJaccard *float64 `toml:"auto_version_min_jaccard,omitempty"`
}

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in a TOML file within the dedup config directory.
type ConfigStore struct {
	mu        sync.RWMutex
	filePath  string
	configDir string
	data      fileConfig
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.dedup/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".dedup")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath:  filepath.Join(configDir, "config.toml"),
		configDir: configDir,
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Engine returns the engine settings, with defaults applied for anything
// the file does not set.
func (s *ConfigStore) Engine() domain.EngineSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := domain.DefaultEngineSettings()
	ec := s.data.Engine

	if ec.NearThreshold != nil {
		settings.NearThreshold = *ec.NearThreshold
	}
	if ec.SemanticThreshold != nil {
		settings.SemanticThreshold = *ec.SemanticThreshold
	}
	if ec.MinHashPermutations != nil {
		settings.MinHashPermutations = *ec.MinHashPermutations
		// Re-derive banding unless the file pins it explicitly.
		if ec.LSHBands == nil && ec.LSHRowsPerBand == nil {
			settings.LSHBands, settings.LSHRowsPerBand =
				domain.DeriveBanding(settings.MinHashPermutations, settings.NearThreshold)
		}
	}
	if ec.ShingleSize != nil {
		settings.ShingleSize = *ec.ShingleSize
	}
	if ec.LSHBands != nil {
		settings.LSHBands = *ec.LSHBands
	}
	if ec.LSHRowsPerBand != nil {
		settings.LSHRowsPerBand = *ec.LSHRowsPerBand
	}
	if ec.SemanticK != nil {
		settings.SemanticK = *ec.SemanticK
	}
	if ec.ProbeTimeoutSeconds != nil {
		settings.ProbeTimeout = time.Duration(*ec.ProbeTimeoutSeconds * float64(time.Second))
	}
	if ec.ProbeRateLimit != nil {
		settings.ProbeRateLimit = *ec.ProbeRateLimit
	}
	if ec.OnExact != nil {
		settings.OnExact = domain.Action(*ec.OnExact)
	}
	if ec.OnNear != nil {
		settings.OnNear = domain.Action(*ec.OnNear)
	}
	if ec.OnSemantic != nil {
		settings.OnSemantic = domain.Action(*ec.OnSemantic)
	}
	if ec.OnUnique != nil {
		settings.OnUnique = domain.Action(*ec.OnUnique)
	}
	if ec.AutoVersionMinJaccard != nil {
		settings.AutoVersionMinJaccard = *ec.AutoVersionMinJaccard
	}

	return settings
}

// SetEngine replaces the engine settings.
func (s *ConfigStore) SetEngine(settings domain.EngineSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	probeTimeout := settings.ProbeTimeout.Seconds()
	onExact := string(settings.OnExact)
	onNear := string(settings.OnNear)
	onSemantic := string(settings.OnSemantic)
	onUnique := string(settings.OnUnique)

	s.data.Engine = engineConfig{
		NearThreshold:         &settings.NearThreshold,
		SemanticThreshold:     &settings.SemanticThreshold,
		MinHashPermutations:   &settings.MinHashPermutations,
		ShingleSize:           &settings.ShingleSize,
		LSHBands:              &settings.LSHBands,
		LSHRowsPerBand:        &settings.LSHRowsPerBand,
		SemanticK:             &settings.SemanticK,
		ProbeTimeoutSeconds:   &probeTimeout,
		ProbeRateLimit:        &settings.ProbeRateLimit,
		OnExact:               &onExact,
		OnNear:                &onNear,
		OnSemantic:            &onSemantic,
		OnUnique:              &onUnique,
		AutoVersionMinJaccard: &settings.AutoVersionMinJaccard,
	}
	return nil
}

// DataDir returns the directory for persistent state.
// Defaults to <configDir>/data when the file does not set one.
func (s *ConfigStore) DataDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.DataDir != "" {
		return s.data.DataDir
	}
	return filepath.Join(s.configDir, "data")
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = fileConfig{}
			return nil
		}
		return err
	}

	var loaded fileConfig
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.data = loaded
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
