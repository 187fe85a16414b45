package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/annopull/internal/app"
	"github.com/hyperifyio/annopull/internal/category"
)

func main() {
	def := app.DefaultConfig()
	var (
		configPath  string
		envFile     string
		baseURL     string
		categories  string
		tempDir     string
		cacheDir    string
		cacheFile   string
		outputPath  string
		outputPDF   string
		manifest    bool
		userAgent   string
		timeout     time.Duration
		rateLimit   float64
		encoding    string
		failFast    bool
		echoRows    bool
		verbose     bool
		cacheMaxAge time.Duration
		cacheClear  bool
		cacheStrict bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.StringVar(&envFile, "env", ".env", "Dotenv file to load before reading ANNOPULL_* variables")
	flag.StringVar(&baseURL, "base", def.BaseURL, "Wiki base URL")
	flag.StringVar(&categories, "categories", strings.Join(category.Default().Strings(), ","), "Comma-separated category list, in fetch order")
	flag.StringVar(&tempDir, "temp", def.TempDir, "Working directory")
	flag.StringVar(&cacheDir, "cache.dir", def.CacheDir, "Directory holding the raw table cache")
	flag.StringVar(&cacheFile, "cache.file", def.CacheFile, "Cache file name inside cache.dir")
	flag.StringVar(&outputPath, "output", def.OutputPath, "Path to write the parsed rows")
	flag.StringVar(&outputPDF, "output.pdf", "", "Optional path to also render the rows as PDF")
	flag.BoolVar(&manifest, "manifest", false, "Write <output>.manifest.json with per-table digests")
	flag.StringVar(&userAgent, "ua", def.UserAgent, "User-Agent for wiki requests")
	flag.DurationVar(&timeout, "timeout", def.Timeout, "Per-request timeout")
	flag.Float64Var(&rateLimit, "rate", def.RateLimit, "Max requests per second to the wiki (0 disables)")
	flag.StringVar(&encoding, "encoding", "", "Force a response character encoding instead of detecting it")
	flag.BoolVar(&failFast, "fail-fast", false, "Abort the run on the first category that cannot be fetched")
	flag.BoolVar(&echoRows, "echo", def.EchoRows, "Print every parsed row to stdout")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Discard the cache when older than this (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear the cache directory before the run")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.Parse()

	if err := bootstrap(envFile, os.Stdout, verbose); err != nil {
		log.Error().Err(err).Str("path", envFile).Msg("load env file")
		os.Exit(1)
	}

	flagCfg := app.Config{
		BaseURL:          baseURL,
		Categories:       app.SplitList(categories),
		TempDir:          tempDir,
		CacheDir:         cacheDir,
		CacheFile:        cacheFile,
		OutputPath:       outputPath,
		OutputPDFPath:    outputPDF,
		Manifest:         manifest,
		UserAgent:        userAgent,
		Timeout:          timeout,
		RateLimit:        rateLimit,
		Encoding:         encoding,
		FailFast:         failFast,
		EchoRows:         echoRows,
		Verbose:          verbose,
		CacheMaxAge:      cacheMaxAge,
		CacheClear:       cacheClear,
		CacheStrictPerms: cacheStrict,
	}
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg, err := resolveConfig(flagCfg, explicit, configPath)
	if err != nil {
		log.Error().Err(err).Msg("config")
		os.Exit(1)
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, app.ErrNoRows) {
			log.Warn().Msg("no table matched any category")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	_, err = a.Run(ctx)
	return err
}

// resolveConfig layers configuration: defaults and file values first, then
// ANNOPULL_* env, then flags given explicitly on the command line.
func resolveConfig(flagCfg app.Config, explicit map[string]bool, configPath string) (app.Config, error) {
	cfg := flagCfg
	if !explicit["categories"] {
		cfg.Categories = nil
	}
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	overlayExplicit(&cfg, flagCfg, explicit)
	if len(cfg.Categories) == 0 {
		cfg.Categories = flagCfg.Categories
	}
	return cfg, app.ValidateConfig(cfg)
}

func overlayExplicit(cfg *app.Config, f app.Config, explicit map[string]bool) {
	for name := range explicit {
		switch name {
		case "base":
			cfg.BaseURL = f.BaseURL
		case "categories":
			cfg.Categories = f.Categories
		case "temp":
			cfg.TempDir = f.TempDir
		case "cache.dir":
			cfg.CacheDir = f.CacheDir
		case "cache.file":
			cfg.CacheFile = f.CacheFile
		case "output":
			cfg.OutputPath = f.OutputPath
		case "output.pdf":
			cfg.OutputPDFPath = f.OutputPDFPath
		case "manifest":
			cfg.Manifest = f.Manifest
		case "ua":
			cfg.UserAgent = f.UserAgent
		case "timeout":
			cfg.Timeout = f.Timeout
		case "rate":
			cfg.RateLimit = f.RateLimit
		case "encoding":
			cfg.Encoding = f.Encoding
		case "fail-fast":
			cfg.FailFast = f.FailFast
		case "echo":
			cfg.EchoRows = f.EchoRows
		case "v":
			cfg.Verbose = f.Verbose
		case "cache.maxAge":
			cfg.CacheMaxAge = f.CacheMaxAge
		case "cache.clear":
			cfg.CacheClear = f.CacheClear
		case "cache.strictPerms":
			cfg.CacheStrictPerms = f.CacheStrictPerms
		}
	}
}

const (
	colorRed    = 31
	colorGreen  = 32
	colorYellow = 33
)

var isTerminal = isatty.IsTerminal

// bootstrap loads the dotenv file and then configures logging, so NO_COLOR
// from the file is honored. Logging is set up even when loading fails.
func bootstrap(envFile string, out *os.File, verbose bool) error {
	err := app.LoadEnvFiles(envFile)
	setupLogging(out, verbose)
	return err
}

// setupLogging writes colored [INFO]/[WARNING]/[ERROR] lines to out, next to
// the echoed rows. It reports whether color was disabled.
func setupLogging(out *os.File, verbose bool) bool {
	zerolog.TimeFieldFormat = time.RFC3339
	noColor := os.Getenv("NO_COLOR") != "" || !isTerminal(out.Fd())
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:         out,
		TimeFormat:  time.Kitchen,
		NoColor:     noColor,
		FormatLevel: levelFormatter(noColor),
	})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return noColor
}

func levelFormatter(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		level, _ := i.(string)
		var tag string
		var color int
		switch level {
		case zerolog.LevelInfoValue:
			tag, color = "[INFO]", colorGreen
		case zerolog.LevelWarnValue:
			tag, color = "[WARNING]", colorYellow
		case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
			tag, color = "[ERROR]", colorRed
		case zerolog.LevelDebugValue:
			tag = "[DEBUG]"
		default:
			tag = "[" + strings.ToUpper(level) + "]"
		}
		if noColor || color == 0 {
			return tag
		}
		return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, tag)
	}
}
