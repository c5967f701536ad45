// Package requirements looks up study visa requirements for supported
// destinations by scraping official pages, with a cache and a static fallback.
package requirements

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/metrics"
	"github.com/ashureev/japa-advisor/internal/store"
	"golang.org/x/sync/singleflight"
)

// ErrUnsupportedCountry is returned for destinations without a scraper.
var ErrUnsupportedCountry = errors.New("unsupported country")

// Country is a supported destination.
type Country struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`

	scraper Scraper
}

// DefaultCountries returns the supported destinations wired to their live pages.
func DefaultCountries() []Country {
	return []Country{
		{
			Key:     "canada",
			Name:    "Canada",
			Aliases: []string{"canada"},
			scraper: CanadaScraper{ApplyURL: CanadaApplyURL, GuideURL: CanadaGuideURL},
		},
		{
			Key:     "uk",
			Name:    "United Kingdom",
			Aliases: []string{"uk", "united kingdom", "great britain", "britain", "england"},
			scraper: UKScraper{URL: UKStudentVisaURL},
		},
		{
			Key:     "usa",
			Name:    "United States",
			Aliases: []string{"usa", "us", "united states", "united states of america", "america"},
			scraper: USAScraper{StateDeptURL: USAStateDeptURL, USAGovURL: USAGovURL},
		},
		{
			Key:     "germany",
			Name:    "Germany",
			Aliases: []string{"germany", "deutschland"},
			scraper: GermanyScraper{MakeItURL: GermanyMakeItURL, FFOURL: GermanyFFOURL},
		},
	}
}

// WithScraper returns a copy of c that uses s.
func (c Country) WithScraper(s Scraper) Country {
	c.scraper = s
	return c
}

// Config configures a Service.
type Config struct {
	CacheTTL      time.Duration
	ScrapeTimeout time.Duration
}

// Service resolves, caches and scrapes visa requirements.
type Service struct {
	cfg       Config
	repo      store.Repository
	fetcher   *Fetcher
	fallbacks Fallbacks
	countries []Country
	byAlias   map[string]*Country
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService creates a Service. repo may be nil to disable caching.
func NewService(cfg Config, countries []Country, repo store.Repository, fetcher *Fetcher, logger *slog.Logger) (*Service, error) {
	fallbacks, err := LoadFallbacks()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:       cfg,
		repo:      repo,
		fetcher:   fetcher,
		fallbacks: fallbacks,
		countries: countries,
		byAlias:   make(map[string]*Country),
		logger:    logger.With("component", "requirements"),
		now:       time.Now,
	}
	for i := range s.countries {
		c := &s.countries[i]
		if _, ok := fallbacks[c.Key]; !ok {
			return nil, fmt.Errorf("country %q has no fallback requirements", c.Key)
		}
		if c.scraper == nil {
			return nil, fmt.Errorf("country %q has no scraper", c.Key)
		}
		for _, alias := range c.Aliases {
			s.byAlias[normalizeCountry(alias)] = c
		}
	}
	return s, nil
}

// Countries returns the supported destinations.
func (s *Service) Countries() []Country {
	out := make([]Country, len(s.countries))
	copy(out, s.countries)
	return out
}

// Resolve maps a free-text country name onto a supported destination.
func (s *Service) Resolve(name string) (Country, bool) {
	c, ok := s.byAlias[normalizeCountry(name)]
	if !ok {
		return Country{}, false
	}
	return *c, true
}

// Lookup returns the requirements for req.Country. The returned Country
// field echoes the requested name.
func (s *Service) Lookup(ctx context.Context, req domain.VisaRequest) (*domain.VisaRequirements, error) {
	country, ok := s.Resolve(req.Country)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCountry, strings.TrimSpace(req.Country))
	}

	// The flight outlives any one caller. Each caller waits on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(country.Key, func() (any, error) {
		return s.lookup(flightCtx, country), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	result := clone(res.Val.(domain.VisaRequirements))
	result.Country = strings.TrimSpace(req.Country)
	return &result, nil
}

func (s *Service) lookup(ctx context.Context, country Country) domain.VisaRequirements {
	logger := s.logger.With("country", country.Key)

	if s.repo != nil {
		cached, err := s.repo.GetRequirements(ctx, country.Key)
		if err != nil {
			logger.Warn("Requirements cache read failed", "error", err)
		} else if cached != nil && cached.Fresh(s.now(), s.freshness(cached)) {
			metrics.RequirementLookups.WithLabelValues(country.Key, metrics.SourceCache).Inc()
			return cached.Requirements
		}
	}

	result, source := s.scrape(ctx, country, logger)
	metrics.RequirementLookups.WithLabelValues(country.Key, source).Inc()

	if s.repo != nil {
		entry := &domain.CachedRequirements{
			Country:      country.Key,
			Requirements: result,
			UsedFallback: result.UsedFallback,
			FetchedAt:    s.now(),
		}
		if err := s.repo.UpsertRequirements(ctx, entry); err != nil {
			logger.Warn("Requirements cache write failed", "error", err)
		}
	}
	return result
}

func (s *Service) scrape(ctx context.Context, country Country, logger *slog.Logger) (domain.VisaRequirements, string) {
	if s.cfg.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScrapeTimeout)
		defer cancel()
	}

	start := time.Now()
	scraped, err := country.scraper.Scrape(ctx, s.fetcher)
	stamp := s.now().UTC().Format(time.RFC3339)
	if err != nil {
		logger.Warn("Scrape failed, serving fallback requirements", "error", err, "duration", time.Since(start))
		fallback, _ := s.fallbacks.Get(country.Key)
		fallback.UsedFallback = true
		fallback.LastUpdated = stamp
		return fallback, metrics.SourceFallback
	}

	logger.Info("Requirements scraped", "documents", len(scraped.Documents), "duration", time.Since(start))
	scraped.LastUpdated = stamp
	return *scraped, metrics.SourceScrape
}

// freshness keeps fallback entries for at most an hour so scraping is retried.
func (s *Service) freshness(entry *domain.CachedRequirements) time.Duration {
	if entry != nil && entry.UsedFallback && s.cfg.CacheTTL > time.Hour {
		return time.Hour
	}
	return s.cfg.CacheTTL
}

func normalizeCountry(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
