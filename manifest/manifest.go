// Package manifest handles qv4.toml engine configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/xhaakon/qv4/vm"
)

// FileName is the name of the configuration file looked up by Load and
// FindAndLoad.
const FileName = "qv4.toml"

// Manifest represents a qv4.toml configuration.
type Manifest struct {
	Engine EngineConfig `toml:"engine"`
	Array  ArrayConfig  `toml:"array"`
	Log    LogConfig    `toml:"log"`

	// Dir is the directory containing the qv4.toml file (set at load time).
	Dir string `toml:"-"`
}

// EngineConfig configures the collector.
type EngineConfig struct {
	GCThreshold int `toml:"gc-threshold"`
}

// ArrayConfig configures indexed storage.
type ArrayConfig struct {
	ReserveLimit  uint32 `toml:"reserve-limit"`
	MinHeadRoom   int    `toml:"min-head-room"`
	SparseGap     uint32 `toml:"sparse-gap"`
	MaxDenseIndex uint32 `toml:"max-dense-index"`
}

// LogConfig configures commonlog output. An empty File logs to stderr.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns a manifest holding the engine defaults.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses a qv4.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.applyDefaults()

	return &m, nil
}

// FindAndLoad walks up from startDir to find a qv4.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	if m.Engine.GCThreshold < 0 {
		return fmt.Errorf("engine.gc-threshold must not be negative, got %d", m.Engine.GCThreshold)
	}
	if m.Array.MinHeadRoom < 0 {
		return fmt.Errorf("array.min-head-room must not be negative, got %d", m.Array.MinHeadRoom)
	}
	if m.Array.MaxDenseIndex == vm.MaxArrayLength {
		return fmt.Errorf("array.max-dense-index %d is not an array index", m.Array.MaxDenseIndex)
	}
	return nil
}

// applyDefaults fills every unset tunable from vm.DefaultConfig.
func (m *Manifest) applyDefaults() {
	def := vm.DefaultConfig()
	if m.Array.ReserveLimit == 0 {
		m.Array.ReserveLimit = def.ReserveLimit
	}
	if m.Array.MinHeadRoom == 0 {
		m.Array.MinHeadRoom = def.MinHeadRoom
	}
	if m.Array.SparseGap == 0 {
		m.Array.SparseGap = def.SparseGap
	}
	if m.Array.MaxDenseIndex == 0 {
		m.Array.MaxDenseIndex = def.MaxDenseIndex
	}
}

// Config returns the engine configuration described by the manifest.
func (m *Manifest) Config() vm.Config {
	return vm.Config{
		GCThreshold:   m.Engine.GCThreshold,
		ReserveLimit:  m.Array.ReserveLimit,
		MinHeadRoom:   m.Array.MinHeadRoom,
		SparseGap:     m.Array.SparseGap,
		MaxDenseIndex: m.Array.MaxDenseIndex,
	}
}

// LogPath returns the log file path resolved against the manifest
// directory, or nil when logging goes to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}

// Save writes the manifest to qv4.toml in dir, replacing any existing file.
func (m *Manifest) Save(dir string) error {
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}
