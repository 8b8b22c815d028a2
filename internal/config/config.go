// Package config handles vtree.toml host configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/roach88/vtree/internal/engine"
	"github.com/roach88/vtree/internal/mutation"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "vtree.toml"

// Config represents a vtree.toml file.
type Config struct {
	Scheduler Scheduler `toml:"scheduler"`
	Log       Log       `toml:"log"`
	Trace     Trace     `toml:"trace"`
	Templates Templates `toml:"templates"`

	// Dir is the directory containing the vtree.toml file (set at load time).
	Dir string `toml:"-"`
}

// Scheduler configures the render loop.
type Scheduler struct {
	DeferredBudget Duration `toml:"deferred-budget"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Trace configures the session log.
type Trace struct {
	DB       string `toml:"db"`
	Encoding string `toml:"encoding"`
	Record   bool   `toml:"record"`
}

// Templates configures where CUE template definitions live.
type Templates struct {
	Dirs []string `toml:"dirs"`
}

// Duration is a time.Duration written as a string ("8ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	c := &Config{Dir: "."}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Scheduler.DeferredBudget.Duration == 0 {
		c.Scheduler.DeferredBudget.Duration = engine.DefaultDeferredBudget
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Trace.DB == "" {
		c.Trace.DB = filepath.Join(".vtree", "trace.db")
	}
	if c.Trace.Encoding == "" {
		c.Trace.Encoding = string(mutation.FormatMsgpack)
	}
	if len(c.Templates.Dirs) == 0 {
		c.Templates.Dirs = []string{"templates"}
	}
}

// Load parses a vtree.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a vtree.toml file, then loads
// and returns it. Returns nil if no file is found.
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

// Validate checks values that TOML decoding cannot.
func (c *Config) Validate() error {
	if c.Scheduler.DeferredBudget.Duration < 0 {
		return fmt.Errorf("scheduler.deferred-budget must not be negative, got %s", c.Scheduler.DeferredBudget)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.Encoding(); err != nil {
		return fmt.Errorf("trace.encoding: %w", err)
	}
	return nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Encoding parses trace.encoding.
func (c *Config) Encoding() (mutation.Format, error) {
	return mutation.ParseFormat(c.Trace.Encoding)
}

// Budget returns the deferred time slice.
func (c *Config) Budget() time.Duration {
	return c.Scheduler.DeferredBudget.Duration
}

// DBPath returns the trace database path, resolved against Dir.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Trace.DB) {
		return c.Trace.DB
	}
	return filepath.Join(c.Dir, c.Trace.DB)
}

// TemplateDirPaths returns absolute paths for the configured template
// directories.
func (c *Config) TemplateDirPaths() []string {
	var paths []string
	for _, d := range c.Templates.Dirs {
		if filepath.IsAbs(d) {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(c.Dir, d))
	}
	return paths
}

// EngineOptions returns the engine options this configuration implies.
func (c *Config) EngineOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithDeferredBudget(c.Budget()),
	}
}
