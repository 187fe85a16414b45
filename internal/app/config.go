package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Source
	BaseURL    string
	Categories []string

	// Paths
	TempDir       string
	CacheDir      string
	CacheFile     string
	OutputPath    string
	OutputPDFPath string
	// Manifest writes <OutputPath>.manifest.json next to the dump.
	Manifest bool

	// HTTP
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second; 0 disables pacing.
	RateLimit float64
	Encoding  string

	// Behavior
	FailFast bool
	EchoRows bool
	Verbose  bool

	// Cache invalidation
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
}

// Defaults mirrored by the CLI flags.
const (
	DefaultTempDir    = "./temp"
	DefaultCacheDir   = "./temp/data"
	DefaultCacheFile  = "data.txt"
	DefaultOutputPath = "./temp/consumption.txt"
	DefaultUserAgent  = "annopull/1.0 (+https://github.com/hyperifyio/annopull)"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 1.0
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://anno1800.fandom.com",
		TempDir:    DefaultTempDir,
		CacheDir:   DefaultCacheDir,
		CacheFile:  DefaultCacheFile,
		OutputPath: DefaultOutputPath,
		UserAgent:  DefaultUserAgent,
		Timeout:    DefaultTimeout,
		RateLimit:  DefaultRateLimit,
		EchoRows:   true,
	}
}
