// Package config handles opdispatch.toml configuration.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/opdispatch/builtin"
	"github.com/chazu/opdispatch/value"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "opdispatch.toml"

// Config represents an opdispatch.toml file.
type Config struct {
	Registry  Registry  `toml:"registry"`
	Numeric   Numeric   `toml:"numeric"`
	Interrupt Interrupt `toml:"interrupt"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Registry configures the dispatcher tables.
type Registry struct {
	InitialCapacity int  `toml:"initial-capacity"`
	Strict          bool `toml:"strict"`
	Stats           bool `toml:"stats"`
}

// Numeric configures the builtin numeric policy.
type Numeric struct {
	SparseAutoMutate   bool `toml:"sparse-auto-mutate"`
	WarnDivideByZero   bool `toml:"warn-divide-by-zero"`
	WarnSingularMatrix bool `toml:"warn-singular-matrix"`
}

// Interrupt configures interrupt escalation.
type Interrupt struct {
	EscalateAfter int `toml:"escalate-after"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	p := builtin.DefaultPolicy()
	return &Config{
		Registry: Registry{InitialCapacity: value.DefaultCapacity},
		Numeric: Numeric{
			SparseAutoMutate:   p.SparseAutoMutate,
			WarnDivideByZero:   p.WarnDivideByZero,
			WarnSingularMatrix: p.WarnSingularMatrix,
		},
		Interrupt: Interrupt{EscalateAfter: 3},
		Log:       Log{Verbosity: 1},
	}
}

// Load parses opdispatch.toml from the given directory. Keys absent from
// the file keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find opdispatch.toml and loads
// it. It returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
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
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	switch {
	case c.Registry.InitialCapacity < 0:
		return fmt.Errorf("registry.initial-capacity must not be negative")
	case c.Registry.InitialCapacity > value.MaxTypes:
		return fmt.Errorf("registry.initial-capacity exceeds %d", value.MaxTypes)
	case c.Interrupt.EscalateAfter < 1:
		return fmt.Errorf("interrupt.escalate-after must be at least 1")
	}
	return nil
}

// DispatcherOptions returns the value.Options the registry section
// describes.
func (c *Config) DispatcherOptions() value.Options {
	return value.Options{
		InitialCapacity: c.Registry.InitialCapacity,
		Strict:          c.Registry.Strict,
		Stats:           c.Registry.Stats,
	}
}

// Policy returns the numeric policy.
func (c *Config) Policy() builtin.Policy {
	return builtin.Policy{
		SparseAutoMutate:   c.Numeric.SparseAutoMutate,
		WarnDivideByZero:   c.Numeric.WarnDivideByZero,
		WarnSingularMatrix: c.Numeric.WarnSingularMatrix,
	}
}

// LogPath returns the log file path, resolved against Dir, or nil for
// stderr.
func (c *Config) LogPath() *string {
	if c.Log.File == "" {
		return nil
	}
	p := c.Log.File
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return &p
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
