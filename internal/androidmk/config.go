package androidmk

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ltpgen/internal/model"
)

// DuplicatePolicy decides what happens when two test targets share a
// basename, which Android.mk cannot express as two modules.
type DuplicatePolicy string

const (
	// DuplicateSkip logs a warning and drops the later target.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateFail aborts generation.
	DuplicateFail DuplicatePolicy = "fail"
)

// ParseDuplicatePolicy validates a policy name. The empty string selects
// DuplicateSkip.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateSkip:
		return DuplicateSkip, nil
	case DuplicateFail:
		return DuplicateFail, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", s, DuplicateSkip, DuplicateFail)
}

// DefaultBuiltinLibs are provided by bionic and never become shared library
// dependencies.
var DefaultBuiltinLibs = []string{"rt", "pthread"}

// Config holds every option honored by the generator.
type Config struct {
	// Test basenames that never get a module.
	DisabledTests model.StringSet
	// Libraries whose users are dropped.
	DisabledLibs model.StringSet
	// Compiler flags whose users are dropped.
	DisabledCflags model.StringSet
	// Libraries assumed to always be available.
	BuiltinLibs model.StringSet

	OnDuplicate DuplicatePolicy

	// Logger receives warnings. Nil discards them.
	Logger *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}

func (c Config) builtinLibs() model.StringSet {
	if c.BuiltinLibs == nil {
		return model.NewStringSet(DefaultBuiltinLibs...)
	}
	return c.BuiltinLibs
}

// FileConfig is the on-disk YAML form of Config. Relative paths are relative
// to the directory of the config file.
type FileConfig struct {
	DisabledTests  string   `yaml:"disabled_tests"`
	DisabledLibs   string   `yaml:"disabled_libs"`
	DisabledCflags string   `yaml:"disabled_cflags"`
	OnDuplicate    string   `yaml:"on_duplicate"`
	BuiltinLibs    []string `yaml:"builtin_libs"`
	Header         string   `yaml:"header"`

	dir string
}

// LoadFileConfig reads a YAML generator configuration.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	fc.dir = filepath.Dir(path)
	return fc, nil
}

// Path resolves a path from the config file.
func (fc *FileConfig) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || fc.dir == "" {
		return p
	}
	return filepath.Join(fc.dir, p)
}

// ExclusionFiles names the three exclusion lists. Empty names are skipped.
type ExclusionFiles struct {
	DisabledTests  string
	DisabledLibs   string
	DisabledCflags string
}

// Load reads the exclusion lists into cfg.
func (e ExclusionFiles) Load(cfg *Config) error {
	for _, f := range []struct {
		path string
		dst  *model.StringSet
	}{
		{e.DisabledTests, &cfg.DisabledTests},
		{e.DisabledLibs, &cfg.DisabledLibs},
		{e.DisabledCflags, &cfg.DisabledCflags},
	} {
		if f.path == "" {
			*f.dst = model.StringSet{}
			continue
		}
		set, err := model.ReadCommentedText(f.path)
		if err != nil {
			return err
		}
		*f.dst = set
	}
	return nil
}
