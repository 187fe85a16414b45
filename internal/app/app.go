package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/annopull/internal/cache"
	"github.com/hyperifyio/annopull/internal/category"
	"github.com/hyperifyio/annopull/internal/fetch"
	"github.com/hyperifyio/annopull/internal/source"
	"github.com/hyperifyio/annopull/internal/table"
)

// ErrNoRows is returned when no table on any page matched a category. The
// (empty) output file is still written.
var ErrNoRows = errors.New("no rows parsed")

type App struct {
	cfg    Config
	set    category.Set
	store  *cache.Store
	loader *source.Loader
	stdout io.Writer
}

// TableSummary describes one classified table.
type TableSummary struct {
	Category category.Category
	Page     category.Category
	Rows     int
	Digest   string
}

// Result is everything one run produced.
type Result struct {
	Rows   []table.Row
	Count  int
	Tables []TableSummary
	Origin source.Origin
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	set := category.Parse(cfg.Categories)
	store := &cache.Store{Dir: cfg.CacheDir, File: cfg.CacheFile, StrictPerms: cfg.CacheStrictPerms}

	// Apply cache invalidation controls
	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			return nil, fmt.Errorf("clear cache: %w", err)
		}
		log.Info().Str("dir", cfg.CacheDir).Msg("cache cleared")
	}
	if cfg.CacheMaxAge > 0 {
		removed, err := cache.PurgeByAge(store.Path(), cfg.CacheMaxAge)
		if err != nil {
			log.Warn().Err(err).Msg("cache purge failed; continuing")
		} else if removed {
			log.Info().Dur("maxAge", cfg.CacheMaxAge).Msg("stale cache removed")
		}
	}

	client := &fetch.Client{
		HTTPClient:        newHTTPClient(cfg.Timeout),
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.Timeout,
		RedirectMaxHops:   5,
		Limiter:           fetch.NewLimiter(cfg.RateLimit),
		Encoding:          cfg.Encoding,
	}
	a := &App{
		cfg:   cfg,
		set:   set,
		store: store,
		loader: &source.Loader{
			Fetcher:  client,
			Store:    store,
			BaseURL:  cfg.BaseURL,
			FailFast: cfg.FailFast,
		},
		stdout: os.Stdout,
	}
	log.Debug().Strs("categories", set.Strings()).Str("cache", store.Path()).Msg("app ready")
	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

// Run executes one full pass: load, classify, parse, write.
func (a *App) Run(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(a.cfg.TempDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create temp dir: %w", err)
	}

	shards, origin, err := a.loader.Load(ctx, a.set)
	if err != nil {
		return Result{}, fmt.Errorf("load data: %w", err)
	}

	log.Info().Int("tables", len(shards)).Msg("Finding Tables")
	res := collect(shards, a.set)
	res.Origin = origin

	if err := writeRows(a.cfg.OutputPath, res.Rows); err != nil {
		return res, err
	}
	if a.cfg.EchoRows && a.stdout != nil {
		if err := echoRows(a.stdout, res.Rows); err != nil {
			return res, fmt.Errorf("echo rows: %w", err)
		}
	}
	log.Info().Str("out", a.cfg.OutputPath).Msgf("%d rows loaded", res.Count)

	if a.cfg.Manifest {
		if err := writeManifest(manifestPath(a.cfg.OutputPath), res); err != nil {
			log.Warn().Err(err).Msg("manifest write failed")
		}
	}
	if a.cfg.OutputPDFPath != "" {
		if err := writeRowsPDF(res, a.cfg.OutputPDFPath); err != nil {
			return res, fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote pdf")
	}

	if res.Count == 0 {
		return res, ErrNoRows
	}
	return res, nil
}

// collect classifies every fragment and parses the rows of those that match
// a category. Rows keep fragment order.
func collect(shards []source.Shard, set category.Set) Result {
	var res Result
	for _, s := range shards {
		c, ok := table.Classify(s.Fragment, set)
		if !ok {
			continue
		}
		rows := table.ParseRows(s.Fragment)
		res.Rows = append(res.Rows, rows...)
		res.Count += len(rows)
		res.Tables = append(res.Tables, TableSummary{
			Category: c,
			Page:     s.Category,
			Rows:     len(rows),
			Digest:   computeSHA256Hex(s.Fragment),
		})
		log.Info().Str("category", string(c)).Int("rows", len(rows)).Msgf("%s parsed", c)
	}
	return res
}

// writeRows creates or truncates path and writes one row per line.
func writeRows(path string, rows []table.Row) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, r := range rows {
		if _, err := w.WriteString(r.String() + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func echoRows(w io.Writer, rows []table.Row) error {
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}
