// Package scrape orchestrates the Encyclopedia Titanica passes: walk the
// class listings to collect passenger URLs, fetch every page through the
// cache, then parse cached pages into passenger records.
package scrape

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/titanic-linkage/internal/extract"
	"github.com/sells-group/titanic-linkage/internal/fetcher"
	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/normalize"
	"github.com/sells-group/titanic-linkage/internal/store"
)

// Options configures the scrape passes.
type Options struct {
	BaseURL string

	// ClassPages maps passenger class (1-3) to its listing page URL.
	ClassPages map[int]string

	// Limit caps the number of passenger pages fetched (0 = no cap).
	// Useful for trial runs against the live site.
	Limit int

	GivenNameLen int
	SurnameLen   int
}

// Engine drives the fetch and extract stages.
type Engine struct {
	store  store.Store
	client *fetcher.Client
	opts   Options
	log    *zap.Logger
}

// New creates an Engine.
func New(st store.Store, client *fetcher.Client, opts Options) *Engine {
	if opts.GivenNameLen <= 0 {
		opts.GivenNameLen = normalize.DefaultGivenNameLen
	}
	if opts.SurnameLen <= 0 {
		opts.SurnameLen = normalize.DefaultSurnameLen
	}
	return &Engine{
		store:  st,
		client: client,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "scrape")),
	}
}

// Fetch walks the class listings and fetches every passenger page found.
// Already-cached pages are skipped, so an interrupted run resumes cheaply.
func (e *Engine) Fetch(ctx context.Context) (fetcher.FetchResult, error) {
	rows, err := e.listingRows(ctx)
	if err != nil {
		return fetcher.FetchResult{}, err
	}

	seen := make(map[string]bool)
	var urls []string
	for _, row := range rows {
		if row.URL == "" || seen[row.URL] {
			continue
		}
		seen[row.URL] = true
		urls = append(urls, row.URL)
	}
	if e.opts.Limit > 0 && len(urls) > e.opts.Limit {
		urls = urls[:e.opts.Limit]
	}

	e.log.Info("collected passenger urls",
		zap.Int("listings", len(e.opts.ClassPages)),
		zap.Int("urls", len(urls)),
	)
	return e.client.FetchMany(ctx, urls)
}

// Extract parses every cached passenger page into a passenger record and
// replaces the encyclopedia table. Listing metadata fills gaps the page
// itself does not state (class, age).
func (e *Engine) Extract(ctx context.Context) (int, error) {
	pages, err := e.store.ListRawPages(ctx)
	if err != nil {
		return 0, err
	}

	listings := make(map[string]bool, len(e.opts.ClassPages))
	for _, u := range e.opts.ClassPages {
		listings[u] = true
	}

	byURL := make(map[string]extract.ListingRow)
	if rows, err := e.listingRows(ctx); err == nil {
		for _, row := range rows {
			byURL[row.URL] = row
		}
	} else {
		e.log.Warn("listing metadata unavailable, extracting pages alone", zap.Error(err))
	}

	var recs []model.Passenger
	for _, page := range pages {
		if listings[page.URL] {
			continue
		}

		p := extract.Page(page.RawHTML)
		p.Source = model.SourceEncyclopedia
		p.SourceID = string(model.SourceEncyclopedia) + ":" + PageSlug(page.URL)

		if row, ok := byURL[page.URL]; ok {
			if p.Pclass == 0 {
				p.Pclass = row.Class
			}
			if p.FullName == "" {
				p.FullName = row.Name
			}
			if p.Age == nil && row.AgeText != "" {
				p.AgeText = row.AgeText
				p.Age = normalize.ConvertAge(row.AgeText)
			}
			if p.HomeDest == "" {
				p.HomeDest = row.Hometown
			}
		}

		normalize.DeriveKeyFields(&p, e.opts.GivenNameLen, e.opts.SurnameLen)
		recs = append(recs, p)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].SourceID < recs[j].SourceID })

	if err := e.store.ReplacePassengers(ctx, model.SourceEncyclopedia, recs); err != nil {
		return 0, err
	}
	e.log.Info("extracted passenger records",
		zap.Int("pages", len(pages)),
		zap.Int("records", len(recs)),
	)
	return len(recs), nil
}

// listingRows fetches (through the cache) and parses all class listings.
func (e *Engine) listingRows(ctx context.Context) ([]extract.ListingRow, error) {
	classes := make([]int, 0, len(e.opts.ClassPages))
	for class := range e.opts.ClassPages {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	var rows []extract.ListingRow
	for _, class := range classes {
		pageURL := e.opts.ClassPages[class]
		html, err := e.client.Fetch(ctx, pageURL)
		if err != nil {
			return nil, eris.Wrapf(err, "scrape: fetch class %d listing", class)
		}
		classRows, err := extract.Listing(html, e.opts.BaseURL, class)
		if err != nil {
			return nil, eris.Wrapf(err, "scrape: parse class %d listing", class)
		}
		rows = append(rows, classRows...)
	}
	return rows, nil
}

// PageSlug derives a stable record identifier from a passenger page URL:
// the final path element with its extension stripped.
func PageSlug(pageURL string) string {
	s := strings.TrimSuffix(pageURL, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i]
	}
	return s
}
