package defaults

import (
	"os"

	"github.com/BurntSushi/toml"
)

// IgnoreFileName is the optional overlay file consulted in addition to the
// built-in catalog above. Supabase's desktop app ships this knob so a
// project can silence noisy third-party-managed tables (e.g. a payments
// vendor's own migration-owned schema) without forking the tool.
const IgnoreFileName = ".pgsyncignore"

// IgnoreConfig is the parsed overlay.
type IgnoreConfig struct {
	Schemas    []string `toml:"schemas,omitempty"`
	Roles      []string `toml:"roles,omitempty"`
	Extensions []string `toml:"extensions,omitempty"`
}

// LoadIgnoreFile loads IgnoreFileName from the current directory. A missing
// file is not an error — the overlay is optional.
func LoadIgnoreFile() (*IgnoreConfig, error) {
	return LoadIgnoreFileFromPath(IgnoreFileName)
}

// LoadIgnoreFileFromPath loads an overlay from an explicit path.
func LoadIgnoreFileFromPath(path string) (*IgnoreConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var cfg IgnoreConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsExcludedSchema reports whether schema is excluded by the built-in
// catalog or listed in the overlay. A nil overlay falls back to the
// built-in catalog alone; the same holds for the two methods below.
func (c *IgnoreConfig) IsExcludedSchema(schema string) bool {
	if IsExcludedSchema(schema) {
		return true
	}
	if c == nil {
		return false
	}
	for _, s := range c.Schemas {
		if s == schema {
			return true
		}
	}
	return false
}

func (c *IgnoreConfig) IsDefaultRole(name string) bool {
	if IsDefaultRole(name) {
		return true
	}
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

func (c *IgnoreConfig) IsDefaultExtension(name string) bool {
	if IsDefaultExtension(name) {
		return true
	}
	if c == nil {
		return false
	}
	for _, e := range c.Extensions {
		if e == name {
			return true
		}
	}
	return false
}
