// Package config loads layered configuration for icloud-dedupe: embedded
// defaults, an optional user TOML file, then environment variables, in
// that order of increasing precedence. No CLI flag overrides these
// settings.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/paths"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

//go:embed default.toml
var defaultConfig []byte

// EnvPrefix is the prefix recognized for environment-variable overrides,
// e.g. ICLOUD_DEDUPE_SCAN_MAX_DEPTH=5.
const EnvPrefix = "ICLOUD_DEDUPE_"

// Scan holds the knobs of candidate discovery and verification.
type Scan struct {
	MaxDepth         int      `koanf:"max_depth"`
	FollowSymlinks   bool     `koanf:"follow_symlinks"`
	IgnoreHidden     bool     `koanf:"ignore_hidden"`
	BundleExtensions []string `koanf:"bundle_extensions"`
}

// Concurrency holds the knobs of the verification worker pool and the
// event bus it reports progress through.
type Concurrency struct {
	WorkerPoolSize  int `koanf:"worker_pool_size"`
	EventBufferSize int `koanf:"event_buffer_size"`
}

// Config is the fully-resolved configuration for one invocation.
type Config struct {
	Scan        Scan        `koanf:"scan"`
	Concurrency Concurrency `koanf:"concurrency"`
}

// Load builds a Config from embedded defaults, an optional config file
// under paths.ConfigDir(), and ICLOUD_DEDUPE_-prefixed environment
// variables, each layer overriding the previous.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawBytesProvider(defaultConfig), toml.Parser()); err != nil {
		return nil, err
	}

	configPath := filepath.Join(paths.ConfigDir(), "config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Concurrency.WorkerPoolSize <= 0 {
		cfg.Concurrency.WorkerPoolSize = defaultWorkerPoolSize()
	}
	return cfg, nil
}

// Default returns the built-in configuration, ignoring any file or
// environment overrides. Used by tests and as the Load() fallback shape.
func Default() *Config {
	return &Config{
		Scan: Scan{
			MaxDepth:         0,
			FollowSymlinks:   false,
			IgnoreHidden:     false,
			BundleExtensions: []string{".pages", ".numbers", ".keynote", ".logicx", ".app", ".framework", ".xcassets"},
		},
		Concurrency: Concurrency{
			WorkerPoolSize:  defaultWorkerPoolSize(),
			EventBufferSize: 256,
		},
	}
}

// defaultWorkerPoolSize returns min(logical_cpus, 8): enough parallelism
// to saturate I/O-bound hashing without oversubscribing small machines.
func defaultWorkerPoolSize() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	if n < 1 {
		return 1
	}
	return n
}

// envKeyTransform turns ICLOUD_DEDUPE_SCAN_MAX_DEPTH into scan.max_depth.
func envKeyTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

type rawBytesProvider []byte

func (p rawBytesProvider) ReadBytes() ([]byte, error) { return p, nil }
func (p rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errUnsupported
}

var errUnsupported = &unsupportedError{}

type unsupportedError struct{}

func (*unsupportedError) Error() string { return "Read() unsupported, use ReadBytes()" }
