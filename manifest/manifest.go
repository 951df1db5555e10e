// Package manifest handles feeny.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/feeny/vm"
)

// FileName is the name of the configuration file looked up by FindAndLoad.
const FileName = "feeny.toml"

// Config represents a feeny.toml file.
type Config struct {
	Heap    HeapConfig    `toml:"heap"`
	Runtime RuntimeConfig `toml:"runtime"`
	Log     LogConfig     `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// HeapConfig sizes the collector's semispaces.
type HeapConfig struct {
	SemispaceBytes int `toml:"semispace-bytes"`
}

// RuntimeConfig configures the interpreter.
type RuntimeConfig struct {
	SlotCacheSize int  `toml:"slot-cache-size"`
	Trace         bool `toml:"trace"`
	Stats         bool `toml:"stats"`
}

// LogConfig configures commonlog. An empty File means stderr.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no feeny.toml exists.
func Default() *Config {
	return &Config{
		Heap:    HeapConfig{SemispaceBytes: vm.DefaultSemispaceBytes},
		Runtime: RuntimeConfig{SlotCacheSize: vm.DefaultSlotCacheSize},
	}
}

// Load parses feeny.toml from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path. Keys it does not set keep
// their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a feeny.toml file and loads
// it. Default() is returned when no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	n := c.Heap.SemispaceBytes
	if n < 32 || n%8 != 0 {
		return fmt.Errorf("heap.semispace-bytes must be a multiple of 8 and at least 32, got %d", n)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative, got %d", c.Log.Verbosity)
	}
	return nil
}

// LogPath returns the log file for commonlog.Configure, nil for stderr.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Log.File
	return &path
}

// VMOptions converts the configuration into interpreter options.
func (c *Config) VMOptions() vm.Options {
	return vm.Options{
		SemispaceBytes: c.Heap.SemispaceBytes,
		SlotCacheSize:  c.Runtime.SlotCacheSize,
		Trace:          c.Runtime.Trace,
	}
}
