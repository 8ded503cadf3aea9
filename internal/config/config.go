// Package config loads the optional threeway configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/chojs23/threeway/internal/linediff"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

const (
	appDir          = "threeway"
	defaultFileName = "config.toml"
)

type Config struct {
	IgnorePolicy   string   `toml:"ignore_policy" yaml:"ignore_policy"`
	MaxLines       int      `toml:"max_lines" yaml:"max_lines"`
	UndoLimit      int      `toml:"undo_limit" yaml:"undo_limit"`
	InnerDiff      bool     `toml:"inner_diff" yaml:"inner_diff"`
	InnerDiffDelay Duration `toml:"inner_diff_delay" yaml:"inner_diff_delay"`
	Backup         bool     `toml:"backup" yaml:"backup"`
	Labels         Labels   `toml:"labels" yaml:"labels"`
	// Theme overrides colours of the interactive resolver, keyed by the
	// theme field names (for example "header_bg").
	Theme map[string]string `toml:"theme" yaml:"theme"`
}

// Labels are written after conflict markers of unresolved hunks.
type Labels struct {
	Ours   string `toml:"ours" yaml:"ours"`
	Base   string `toml:"base" yaml:"base"`
	Theirs string `toml:"theirs" yaml:"theirs"`
}

// Duration accepts time.ParseDuration strings such as "300ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseError reports a file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func Default() Config {
	return Config{
		IgnorePolicy:   linediff.Default.String(),
		MaxLines:       linediff.DefaultMaxLines,
		UndoLimit:      100,
		InnerDiff:      true,
		InnerDiffDelay: Duration{300 * time.Millisecond},
		Labels:         Labels{Ours: "ours", Base: "base", Theirs: "theirs"},
	}
}

// DefaultPath is config.toml in the threeway directory of the user config
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, defaultFileName), nil
}

// Load reads path on top of Default. An empty path means DefaultPath, which
// may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Decode(path, data)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses data in the format given by the extension of name.
func Decode(name string, data []byte) (Config, error) {
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, &ParseError{Path: name, Err: err}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, &ParseError{Path: name, Err: err}
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := linediff.ParsePolicy(c.IgnorePolicy); err != nil {
		return err
	}
	if c.MaxLines < 0 {
		return fmt.Errorf("max_lines must not be negative, got %d", c.MaxLines)
	}
	if c.UndoLimit < 1 {
		return fmt.Errorf("undo_limit must be at least 1, got %d", c.UndoLimit)
	}
	if c.InnerDiffDelay.Duration < 0 {
		return fmt.Errorf("inner_diff_delay must not be negative, got %v", c.InnerDiffDelay)
	}
	return nil
}

// Policy returns the parsed ignore policy. Validate has already rejected
// unknown names.
func (c Config) Policy() linediff.IgnorePolicy {
	p, _ := linediff.ParsePolicy(c.IgnorePolicy)
	return p
}
