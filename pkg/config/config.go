package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for kindred.
type Config struct {
	// Analysis settings for the fingerprinting pipeline
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Grammar defines the shared token grammar across languages
	Grammar GrammarConfig `koanf:"grammar" toml:"grammar"`

	// File collection settings
	Collect CollectConfig `koanf:"collect" toml:"collect"`

	// Resource limits
	Limits LimitsConfig `koanf:"limits" toml:"limits"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Server settings for the compare API
	Server ServerConfig `koanf:"server" toml:"server"`
}

// AnalysisConfig controls the similarity pipeline.
type AnalysisConfig struct {
	ShingleSize   int `koanf:"shingle_size" toml:"shingle_size"`
	PreviewTokens int `koanf:"preview_tokens" toml:"preview_tokens"`
	Workers       int `koanf:"workers" toml:"workers"` // 0 = 2x NumCPU
}

// GrammarConfig defines the reserved-word set and comment markers shared
// by all supported languages. ExtraKeywords and ExtraLineComments are
// merged into the built-in defaults rather than replacing them.
type GrammarConfig struct {
	ExtraKeywords     []string `koanf:"extra_keywords" toml:"extra_keywords"`
	ExtraLineComments []string `koanf:"extra_line_comments" toml:"extra_line_comments"`
	NoDefaults        bool     `koanf:"no_defaults" toml:"no_defaults"`
}

// CollectConfig controls which files qualify for comparison.
type CollectConfig struct {
	Extensions  []string `koanf:"extensions" toml:"extensions"`
	ExcludeDirs []string `koanf:"exclude_dirs" toml:"exclude_dirs"`
}

// LimitsConfig bounds per-file and per-run resource usage.
type LimitsConfig struct {
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
	MaxTokens   int   `koanf:"max_tokens" toml:"max_tokens"`    // raw tokens per file, 0 = no limit
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// ServerConfig controls the HTTP compare API.
type ServerConfig struct {
	Port            string `koanf:"port" toml:"port"`
	MaxUploadBytes  int64  `koanf:"max_upload_bytes" toml:"max_upload_bytes"`
	ShutdownSeconds int    `koanf:"shutdown_seconds" toml:"shutdown_seconds"`
}

// defaultKeywords is the combined reserved-word set for the grammars in
// scope (Java plus JS/TS). Keywords are never renamed during
// normalization, so this set is what lets control-flow shape survive
// identifier renaming.
var defaultKeywords = []string{
	// Java
	"abstract", "assert", "boolean", "break", "byte", "case", "catch", "char", "class", "const",
	"continue", "default", "do", "double", "else", "enum", "extends", "final", "finally", "float",
	"for", "goto", "if", "implements", "import", "instanceof", "int", "interface", "long", "native",
	"new", "package", "private", "protected", "public", "return", "short", "static", "strictfp",
	"super", "switch", "synchronized", "this", "throw", "throws", "transient", "try", "void",
	"volatile", "while", "true", "false", "null",
	// JavaScript / TypeScript
	"debugger", "delete", "export", "function", "in", "let", "of", "typeof", "var", "with",
	"yield", "await", "async", "from", "type", "as", "any", "never", "unknown", "readonly",
	"global", "namespace", "declare", "module",
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			ShingleSize:   5,
			PreviewTokens: 80,
			Workers:       0,
		},
		Grammar: GrammarConfig{},
		Collect: CollectConfig{
			Extensions: []string{
				".java", ".py", ".c", ".cpp", ".js", ".ts", ".cs", ".go", ".rb", ".php", ".jsx", ".tsx",
			},
			ExcludeDirs: []string{
				".git", ".idea", ".vscode", "node_modules", "__pycache__",
				"target", "build", ".metadata", "vendor", "dist",
			},
		},
		Limits: LimitsConfig{
			MaxFileSize: 4 << 20, // 4 MiB
			MaxTokens:   0,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
		Server: ServerConfig{
			Port:            "8080",
			MaxUploadBytes:  64 << 20,
			ShutdownSeconds: 30,
		},
	}
}

// Keywords returns the effective reserved-word set.
func (c *Config) Keywords() map[string]struct{} {
	set := make(map[string]struct{})
	if !c.Grammar.NoDefaults {
		for _, kw := range defaultKeywords {
			set[kw] = struct{}{}
		}
	}
	for _, kw := range c.Grammar.ExtraKeywords {
		set[kw] = struct{}{}
	}
	return set
}

// LineComments returns the effective line-comment markers. "//" is always
// recognized; "#" covers the script languages in the default extension set.
func (c *Config) LineComments() []string {
	markers := []string{"//"}
	if !c.Grammar.NoDefaults {
		markers = append(markers, "#")
	}
	for _, m := range c.Grammar.ExtraLineComments {
		markers = append(markers, m)
	}
	return markers
}

// Validate rejects invalid configuration before any file processing starts.
func (c *Config) Validate() error {
	if c.Analysis.ShingleSize < 1 {
		return fmt.Errorf("analysis.shingle_size must be >= 1, got %d", c.Analysis.ShingleSize)
	}
	if len(c.Keywords()) == 0 {
		return errors.New("grammar produces an empty reserved-word set")
	}
	if c.Analysis.PreviewTokens < 0 {
		return fmt.Errorf("analysis.preview_tokens must be >= 0, got %d", c.Analysis.PreviewTokens)
	}
	if c.Limits.MaxFileSize < 0 {
		return fmt.Errorf("limits.max_file_size must be >= 0, got %d", c.Limits.MaxFileSize)
	}
	if c.Limits.MaxTokens < 0 {
		return fmt.Errorf("limits.max_tokens must be >= 0, got %d", c.Limits.MaxTokens)
	}
	return nil
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"kindred.toml",
		"kindred.yaml",
		"kindred.yml",
		"kindred.json",
		".kindred.toml",
		".kindred.yaml",
		".kindred.yml",
		".kindred.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := Load(name)
			if err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}
