package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"shadergen/internal/core"
	"shadergen/internal/emit"
	"shadergen/internal/trace"
)

// Config holds the generation settings that may come from a config file.
type Config struct {
	HeaderName   string   `toml:"header_name" yaml:"header_name"`
	ManifestName string   `toml:"manifest_name" yaml:"manifest_name"`
	Guard        string   `toml:"guard" yaml:"guard"`
	Newlines     string   `toml:"newlines" yaml:"newlines"`
	Exclude      []string `toml:"exclude" yaml:"exclude"`
	Jobs         int      `toml:"jobs" yaml:"jobs"`
	Strict       bool     `toml:"strict" yaml:"strict"`
}

func DefaultConfig() Config {
	return Config{
		HeaderName:   emit.DefaultHeaderName,
		ManifestName: emit.DefaultManifestName,
		Guard:        string(emit.GuardPragma),
		Newlines:     string(core.NewlinesPreserve),
		Jobs:         1,
	}
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// LoadConfig reads the config file at path over DefaultConfig.
//
// The format follows the extension: .toml, or .yaml/.yml. The loader is
// strict: unknown keys are rejected so a typo never silently falls back to
// a default. Errors are *InvocationError with ExitConfigError.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, configErrorf("read config: %v", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, configErrorf("parse config %s: %v", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, configErrorf("parse config %s: %v", path, err)
		}
	default:
		return Config{}, configErrorf("unsupported config format %q (expected .toml, .yaml or .yml)", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	g, _ := emit.ParseGuard(cfg.Guard)
	nl, _ := core.ParseNewlineMode(cfg.Newlines)
	cfg.Guard, cfg.Newlines = string(g), string(nl)
	return cfg, nil
}

// Validate checks every field and returns a config error for the first bad one.
func (c Config) Validate() error {
	if err := validateFileName("header_name", c.HeaderName); err != nil {
		return err
	}
	if err := validateFileName("manifest_name", c.ManifestName); err != nil {
		return err
	}
	if _, err := emit.ParseGuard(c.Guard); err != nil {
		return configErrorf("guard: %v", err)
	}
	if _, err := core.ParseNewlineMode(c.Newlines); err != nil {
		return configErrorf("newlines: %v", err)
	}
	if c.Jobs < 0 {
		return configErrorf("jobs must not be negative (got %d)", c.Jobs)
	}
	for _, p := range c.Exclude {
		if strings.TrimSpace(p) == "" {
			return configErrorf("exclude: empty pattern")
		}
	}
	return nil
}

func validateFileName(key, name string) error {
	switch {
	case name == "":
		return configErrorf("%s must not be empty", key)
	case name == "." || name == "..":
		return configErrorf("%s must be a file name (got %q)", key, name)
	case strings.ContainsAny(name, `/\`):
		return configErrorf("%s must be a plain file name without separators (got %q)", key, name)
	case strings.IndexFunc(name, notFileNameRune) >= 0:
		return configErrorf("%s may only contain letters, digits, '_', '-' and '.' (got %q)", key, name)
	}
	return nil
}

func notFileNameRune(r rune) bool {
	switch {
	case r == '_', r == '-', r == '.':
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
	default:
		return true
	}
	return false
}

// Hash identifies the settings that shape the generated bytes. It keys the
// generation trace; jobs and strict do not affect output and are left out.
func (c Config) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "header_name=%s\n", c.HeaderName)
	fmt.Fprintf(&b, "manifest_name=%s\n", c.ManifestName)
	fmt.Fprintf(&b, "guard=%s\n", c.Guard)
	fmt.Fprintf(&b, "newlines=%s\n", c.Newlines)
	for _, p := range c.Exclude {
		fmt.Fprintf(&b, "exclude=%s\n", p)
	}
	return trace.Digest([]byte(b.String()))
}
