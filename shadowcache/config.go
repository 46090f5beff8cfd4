// Configuration, following manifest/manifest.go's "optional toml file,
// sane defaults when absent" pattern.
package shadowcache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config tunes the cache without changing any of its semantics: every
// field here is a cost/visibility knob, never a correctness one.
type Config struct {
	// StatsEnabled gates the Detailed per-category counters (the plain
	// per-Op totals are always kept; they cost one counter bump per
	// access either way). Defaults to false.
	StatsEnabled bool `toml:"stats-enabled"`

	// PolymorphicCapacity overrides PolymorphicCap for sites whose call
	// pattern is known to see many receiver types. Defaults to
	// PolymorphicCap; values are otherwise used as-is, including values
	// below the default.
	PolymorphicCapacity int `toml:"polymorphic-capacity"`

	// UncacheableWarnThreshold is how many uncacheable hits at a single
	// site are tolerated silently before Stats logs a Warning about it.
	// Zero disables the warning entirely.
	UncacheableWarnThreshold int `toml:"uncacheable-warn-threshold"`
}

// DefaultConfig matches the package's built-in behavior with no config
// file present.
func DefaultConfig() Config {
	return Config{
		StatsEnabled:             false,
		PolymorphicCapacity:      PolymorphicCap,
		UncacheableWarnThreshold: 0,
	}
}

// LoadConfig reads shadowcache.toml from dir, falling back to
// DefaultConfig if the file doesn't exist. A malformed file is an error;
// an absent one is not.
func LoadConfig(dir string) (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(dir, "shadowcache.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.PolymorphicCapacity <= 0 {
		cfg.PolymorphicCapacity = PolymorphicCap
	}
	return cfg, nil
}
