package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/annopull/internal/cache"
	"github.com/hyperifyio/annopull/internal/category"
	"github.com/hyperifyio/annopull/internal/fetch"
	"github.com/hyperifyio/annopull/internal/pattern"
)

// DefaultBaseURL is the wiki the residence pages are read from.
const DefaultBaseURL = "https://anno1800.fandom.com"

// ErrNoPages is returned when no category page could be fetched.
var ErrNoPages = errors.New("no category pages fetched")

// Origin tells where a Load got its data from.
type Origin string

const (
	OriginNetwork Origin = "network"
	OriginCache   Origin = "cache"
)

// Shard is one table fragment together with the category page it came from.
// Category is empty when the cache carried no labels.
type Shard struct {
	Category category.Category
	Fragment string
}

// Fetcher is the subset of fetch.Client the loader needs.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (fetch.Page, error)
}

// Loader produces the raw table fragments for a category set, from the cache
// when present and from the wiki otherwise.
type Loader struct {
	Fetcher Fetcher
	Store   *cache.Store
	BaseURL string
	// FailFast aborts on the first category that cannot be fetched. When
	// false the category is logged and skipped, and the cache is not written
	// so the next run fetches again.
	FailFast bool
}

// PageURL returns the residence page for a category.
func PageURL(base string, c category.Category) string {
	return baseOrDefault(base) + "/wiki/" + url.PathEscape(string(c)) + "_Residence"
}

func baseOrDefault(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return DefaultBaseURL
	}
	return base
}

// Load returns all table fragments for the set, in category order.
func (l *Loader) Load(ctx context.Context, set category.Set) ([]Shard, Origin, error) {
	if l.Store == nil {
		return nil, "", errors.New("source: cache store not configured")
	}
	if err := l.Store.EnsureDir(); err != nil {
		return nil, "", err
	}
	ok, err := l.Store.Exists()
	if err != nil {
		return nil, "", err
	}
	if ok {
		log.Info().Str("path", l.Store.Path()).Msg("Loading data from file")
		shards, err := l.loadCache()
		if err != nil {
			return nil, "", err
		}
		return shards, OriginCache, nil
	}
	shards, err := l.download(ctx, set)
	if err != nil {
		return nil, "", err
	}
	return shards, OriginNetwork, nil
}

func (l *Loader) loadCache() ([]Shard, error) {
	fragments, meta, err := l.Store.Load()
	if err != nil {
		return nil, err
	}
	var labels []string
	if meta != nil {
		labels = meta.Labels()
		if len(labels) != len(fragments) {
			log.Warn().Int("expected", len(labels)).Int("found", len(fragments)).
				Msg("cache shard count does not match its metadata; a fragment probably contains the delimiter")
			labels = nil
		}
	}
	shards := make([]Shard, 0, len(fragments))
	for i, f := range fragments {
		s := Shard{Fragment: f}
		if labels != nil {
			s.Category = category.Category(labels[i])
		}
		shards = append(shards, s)
	}
	return shards, nil
}

func (l *Loader) download(ctx context.Context, set category.Set) ([]Shard, error) {
	if l.Fetcher == nil {
		return nil, errors.New("source: fetcher not configured")
	}
	var (
		shards []Shard
		counts []cache.ShardCount
		failed int
	)
	for _, c := range set.All() {
		pageURL := PageURL(l.BaseURL, c)
		log.Info().Str("category", string(c)).Str("url", pageURL).Msgf("Downloading data for %s", c)
		fragments, err := l.fetchTables(ctx, pageURL)
		if err != nil {
			if l.FailFast || ctx.Err() != nil {
				return nil, fmt.Errorf("fetch %s: %w", c, err)
			}
			log.Warn().Err(err).Str("category", string(c)).Msg("fetch failed; skipping category")
			failed++
			continue
		}
		for _, f := range fragments {
			shards = append(shards, Shard{Category: c, Fragment: f})
		}
		counts = append(counts, cache.ShardCount{Category: string(c), Count: len(fragments)})
	}
	if set.Len() > 0 && failed == set.Len() {
		return nil, ErrNoPages
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Msg("some categories failed; cache not written")
		return shards, nil
	}
	fragments := make([]string, 0, len(shards))
	for _, s := range shards {
		fragments = append(fragments, s.Fragment)
	}
	meta := cache.Meta{BaseURL: baseOrDefault(l.BaseURL), Shards: counts}
	if err := l.Store.Save(fragments, meta); err != nil {
		return nil, err
	}
	return shards, nil
}

// fetchTables downloads one page and returns every table fragment on it,
// relevant or not.
func (l *Loader) fetchTables(ctx context.Context, pageURL string) ([]string, error) {
	page, err := l.Fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if !page.OK() {
		log.Warn().Int("status", page.Status).Str("url", pageURL).Msg("unexpected status; parsing body anyway")
	}
	html := strings.ReplaceAll(page.Text, "\n", "")
	fragments := pattern.Table.FindAll(html, false)
	log.Debug().Str("url", pageURL).Stringer("pattern", pattern.Table).Int("tables", len(fragments)).Msg("tables extracted")
	return fragments, nil
}
