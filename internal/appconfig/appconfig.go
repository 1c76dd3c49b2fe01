// Package appconfig holds archiver-wide settings loaded from a TOML
// file on disk. None of the compression core reads it; cmd/zpaqgo
// consults it for defaults a flag doesn't override.
package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full set of archiver-wide settings a user may override
// in config.toml. Per-invocation choices (which .cfg file, which files
// to add) stay on the CLI; this only holds defaults and toggles.
type Config struct {
	// Compression settings: defaults applied when a command-line flag
	// is not given.
	Compression struct {
		DefaultLevel  int    `toml:"default_level"`  // 1..3, internal/cfgcompile.BuiltinConfig
		MemoryCeiling uint64 `toml:"memory_ceiling"` // bytes; reject headers whose hh/hm/ph/pm would exceed this
		Checksum      bool   `toml:"checksum"`       // append a digest trailer to segments by default
	} `toml:"compression"`

	// Archive settings: container-level conventions.
	Archive struct {
		LocatorTag   bool `toml:"locator_tag"`   // prepend the 13-byte locator tag when starting a new archive
		AppendBlocks bool `toml:"append_blocks"` // open existing archives for append rather than truncate
		SizeComment  bool `toml:"size_comment"`  // write "<size> <tag>" into segment comments
	} `toml:"archive"`

	// Trace settings: internal/trace toggles.
	Trace struct {
		Enabled       bool   `toml:"enabled"`
		OutputFile    string `toml:"output_file"`
		Format        string `toml:"format"` // text, json
		MaxEntries    int    `toml:"max_entries"`
		IncludeTiming bool   `toml:"include_timing"`
	} `toml:"trace"`

	// Statistics settings: component-prediction and VM-instruction
	// counters, independent of the trace ring.
	Statistics struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
		Format     string `toml:"format"` // json, csv, text
	} `toml:"statistics"`
}

// DefaultConfig returns a configuration with default values: level 1
// compression with checksums on.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Compression.DefaultLevel = 1
	cfg.Compression.MemoryCeiling = 1 << 30 // 1 GiB
	cfg.Compression.Checksum = true

	cfg.Archive.LocatorTag = false
	cfg.Archive.AppendBlocks = true
	cfg.Archive.SizeComment = true

	cfg.Trace.Enabled = false
	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.Format = "text"
	cfg.Trace.MaxEntries = 100000
	cfg.Trace.IncludeTiming = true

	cfg.Statistics.Enabled = false
	cfg.Statistics.OutputFile = "stats.json"
	cfg.Statistics.Format = "json"

	return cfg
}

// ConfigPath is the default settings file location,
// <user-config-dir>/zpaqgo/config.toml. When the platform reports no
// per-user config directory, a config.toml in the working directory is
// used instead. The getter never creates anything on disk; Save does
// that on first write.
func ConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "zpaqgo", "config.toml")
}

// LogDir is the default destination for trace and statistics output
// written without an explicit path: <user-cache-dir>/zpaqgo, since
// those files are regenerable diagnostics, not configuration.
func LogDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "logs"
	}
	return filepath.Join(dir, "zpaqgo")
}

// Load reads the default settings file. A missing file is not an
// error: the defaults apply unchanged.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads settings from path, layering the file's values over
// the defaults so a partial file only overrides the keys it names.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) // #nosec G304 -- user settings file path
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appconfig: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("appconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the settings to the default location, creating the
// config directory on first use.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the settings to path as TOML. The encode happens into
// a buffer first so a marshalling failure cannot leave a truncated
// file behind.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("appconfig: encoding settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("appconfig: creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("appconfig: writing %s: %w", path, err)
	}
	return nil
}
