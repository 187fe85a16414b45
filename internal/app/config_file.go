package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
	BaseURL    string   `yaml:"baseURL" json:"baseURL"`
	Categories []string `yaml:"categories" json:"categories"`

	TempDir   string `yaml:"tempDir" json:"tempDir"`
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`
	Manifest  bool   `yaml:"manifest" json:"manifest"`

	HTTP struct {
		UserAgent string         `yaml:"userAgent" json:"userAgent"`
		// nil when absent; an explicit 0 disables the limit.
		Timeout   *time.Duration `yaml:"timeout" json:"timeout"`
		RateLimit *float64       `yaml:"rateLimit" json:"rateLimit"`
		Encoding  string         `yaml:"encoding" json:"encoding"`
	} `yaml:"http" json:"http"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		File        string        `yaml:"file" json:"file"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	FailFast bool  `yaml:"failFast" json:"failFast"`
	EchoRows *bool `yaml:"echoRows" json:"echoRows"`
	Verbose  bool  `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are unset or still at their default. Flags are parsed first; this lets the
// file supply values while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()

	if (cfg.BaseURL == "" || cfg.BaseURL == def.BaseURL) && fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if len(cfg.Categories) == 0 && len(fc.Categories) > 0 {
		cfg.Categories = append([]string{}, fc.Categories...)
	}
	if (cfg.TempDir == "" || cfg.TempDir == def.TempDir) && fc.TempDir != "" {
		cfg.TempDir = fc.TempDir
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == def.OutputPath) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputPDFPath == "" && fc.OutputPDF != "" {
		cfg.OutputPDFPath = fc.OutputPDF
	}
	if !cfg.Manifest && fc.Manifest {
		cfg.Manifest = true
	}

	if (cfg.UserAgent == "" || cfg.UserAgent == def.UserAgent) && fc.HTTP.UserAgent != "" {
		cfg.UserAgent = fc.HTTP.UserAgent
	}
	if (cfg.Timeout == 0 || cfg.Timeout == def.Timeout) && fc.HTTP.Timeout != nil {
		cfg.Timeout = *fc.HTTP.Timeout
	}
	if (cfg.RateLimit == 0 || cfg.RateLimit == def.RateLimit) && fc.HTTP.RateLimit != nil {
		cfg.RateLimit = *fc.HTTP.RateLimit
	}
	if cfg.Encoding == "" && fc.HTTP.Encoding != "" {
		cfg.Encoding = fc.HTTP.Encoding
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == def.CacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if (cfg.CacheFile == "" || cfg.CacheFile == def.CacheFile) && fc.Cache.File != "" {
		cfg.CacheFile = fc.Cache.File
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}

	if !cfg.FailFast && fc.FailFast {
		cfg.FailFast = true
	}
	if fc.EchoRows != nil {
		cfg.EchoRows = *fc.EchoRows
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return errors.New("config: base URL is required")
	}
	if len(cfg.Categories) == 0 {
		return errors.New("config: at least one category is required")
	}
	if strings.TrimSpace(cfg.TempDir) == "" {
		return errors.New("config: temp dir is required")
	}
	if strings.TrimSpace(cfg.CacheDir) == "" || strings.TrimSpace(cfg.CacheFile) == "" {
		return errors.New("config: cache dir and file are required")
	}
	if strings.ContainsAny(cfg.CacheFile, `/\`) {
		return errors.New("config: cache file must be a plain file name")
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return errors.New("config: output path is required")
	}
	if cfg.Timeout < 0 || cfg.RateLimit < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
