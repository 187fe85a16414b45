package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with ANNOPULL_* environment
// variables when they are set. This lets env take precedence over a config
// file while flags set explicitly on the command line are re-applied after.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, envKey string) {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.BaseURL, "ANNOPULL_BASE_URL")
	setString(&cfg.TempDir, "ANNOPULL_TEMP_DIR")
	setString(&cfg.CacheDir, "ANNOPULL_CACHE_DIR")
	setString(&cfg.OutputPath, "ANNOPULL_OUTPUT")
	setString(&cfg.OutputPDFPath, "ANNOPULL_OUTPUT_PDF")
	setString(&cfg.UserAgent, "ANNOPULL_USER_AGENT")
	setString(&cfg.Encoding, "ANNOPULL_ENCODING")

	if v := strings.TrimSpace(os.Getenv("ANNOPULL_CATEGORIES")); v != "" {
		cfg.Categories = SplitList(v)
	}

	// Optional durations
	setDuration := func(dst *time.Duration, envKey string) {
		if s := strings.TrimSpace(os.Getenv(envKey)); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.Timeout, "ANNOPULL_TIMEOUT")
	setDuration(&cfg.CacheMaxAge, "ANNOPULL_CACHE_MAX_AGE")

	if s := strings.TrimSpace(os.Getenv("ANNOPULL_RATE_LIMIT")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			cfg.RateLimit = f
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.FailFast, "ANNOPULL_FAIL_FAST")
	setBool(&cfg.CacheClear, "ANNOPULL_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "ANNOPULL_CACHE_STRICT_PERMS")
	setBool(&cfg.Verbose, "ANNOPULL_VERBOSE")
	setBool(&cfg.EchoRows, "ANNOPULL_ECHO_ROWS")
	setBool(&cfg.Manifest, "ANNOPULL_MANIFEST")
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			list = append(list, v)
		}
	}
	return list
}
