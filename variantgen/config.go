package variantgen

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gorilla/schema"

	"github.com/broady/variant/variantgen/ir"
)

// Format selects how artifacts are serialized.
type Format string

const (
	// FormatJSON writes <union>.plan.json and <union>.contracts.json.
	FormatJSON Format = "json"

	// FormatText writes human-readable <union>.plan.txt and
	// <union>.contracts.txt.
	FormatText Format = "text"
)

// String returns the format name.
func (f Format) String() string {
	return string(f)
}

// ext returns the file extension for the format.
func (f Format) ext() string {
	if f == FormatText {
		return ".txt"
	}
	return ".json"
}

// Config holds the configuration for artifact generation.
type Config struct {
	// OutDir is the directory where artifacts are written.
	// Required by ToDir; ignored by Generate.
	OutDir string

	// Format selects the artifact encoding.
	// Default: "json"
	Format Format

	// SingleFile emits every union into one variants.json (or variants.txt).
	// Default (false) writes a plan and a contracts file per union.
	SingleFile bool

	// Unions restricts generation to the named unions. Empty means all.
	Unions []string

	// Overrides replace option flags on every union, keyed by the option's
	// schema name (e.g. "shareReferenceSlots"). Values are parsed as bools.
	Overrides map[string][]string

	// Logger receives debug output. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// applyConfigDefaults applies default values to Config.
func applyConfigDefaults(cfg *Config) *Config {
	// Make a copy to avoid mutating the input
	result := *cfg

	if result.Format == "" {
		result.Format = FormatJSON
	}
	if result.Logger == nil {
		result.Logger = slog.Default()
	}

	return &result
}

func (c *Config) validate() error {
	switch c.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("unknown format: %q (expected \"json\" or \"text\")", c.Format)
	}
	if _, err := ApplyOverrides(ir.DefaultOptions(), c.Overrides); err != nil {
		return err
	}
	return nil
}

var overrideDecoder = schema.NewDecoder()

// ApplyOverrides returns opts with the flags named in overrides replaced.
// Keys not present in overrides keep their current value. Unknown keys and
// non-boolean values are errors.
func ApplyOverrides(opts ir.Options, overrides map[string][]string) (ir.Options, error) {
	if len(overrides) == 0 {
		return opts, nil
	}
	if err := overrideDecoder.Decode(&opts, overrides); err != nil {
		return opts, fmt.Errorf("invalid option override: %w", err)
	}
	return opts, nil
}

// ParseOverrides turns "key=value" pairs into an overrides map.
// A bare key means "key=true".
func ParseOverrides(pairs []string) (map[string][]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid option override %q: missing key", p)
		}
		if !ok {
			value = "true"
		}
		out[key] = append(out[key], strings.TrimSpace(value))
	}
	return out, nil
}
