// Package manifest handles descriptors.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "descriptors.toml"

// Manifest represents a descriptors.toml configuration.
type Manifest struct {
	Heap        HeapConfig        `toml:"heap"`
	Descriptors DescriptorsConfig `toml:"descriptors"`
	LookupCache LookupCacheConfig `toml:"lookup-cache"`
	Log         LogConfig         `toml:"log"`

	// Dir is the directory containing the descriptors.toml file (set at load time).
	Dir string `toml:"-"`
}

// HeapConfig sizes the managed heap and its collector.
type HeapConfig struct {
	LimitBytes int64    `toml:"limit-bytes"`
	StepBudget int      `toml:"step-budget"`
	GCInterval Duration `toml:"gc-interval"`
}

// DescriptorsConfig tunes descriptor table allocation.
type DescriptorsConfig struct {
	DefaultSlack int `toml:"default-slack"`
	WarnCapacity int `toml:"warn-capacity"`
}

// LookupCacheConfig sizes the process-wide lookup cache.
type LookupCacheConfig struct {
	Size int `toml:"size"`
}

// LogConfig configures commonlog verbosity for the CLI.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Duration decodes TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Heap.StepBudget == 0 {
		m.Heap.StepBudget = 64
	}
	if m.Heap.GCInterval.Duration == 0 {
		m.Heap.GCInterval.Duration = 30 * time.Second
	}
	if m.Descriptors.WarnCapacity == 0 {
		m.Descriptors.WarnCapacity = 512
	}
	if m.LookupCache.Size == 0 {
		m.LookupCache.Size = 64
	}
}

// Validate reports the first setting that cannot be used.
func (m *Manifest) Validate() error {
	switch {
	case m.Heap.LimitBytes < 0:
		return fmt.Errorf("heap.limit-bytes must not be negative, got %d", m.Heap.LimitBytes)
	case m.Heap.StepBudget < 0:
		return fmt.Errorf("heap.step-budget must not be negative, got %d", m.Heap.StepBudget)
	case m.Heap.GCInterval.Duration < 0:
		return fmt.Errorf("heap.gc-interval must not be negative, got %s", m.Heap.GCInterval.Duration)
	case m.Descriptors.DefaultSlack < 0:
		return fmt.Errorf("descriptors.default-slack must not be negative, got %d", m.Descriptors.DefaultSlack)
	case m.LookupCache.Size <= 0 || m.LookupCache.Size&(m.LookupCache.Size-1) != 0:
		return fmt.Errorf("lookup-cache.size must be a positive power of two, got %d", m.LookupCache.Size)
	}
	return nil
}

// Load parses a descriptors.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates configuration text.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a descriptors.toml file,
// then loads and returns it. Returns nil if no file is found.
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
