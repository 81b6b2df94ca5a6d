package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/ibex-prices/internal/config"
	"github.com/samvad-hq/ibex-prices/internal/logger"
	"github.com/samvad-hq/ibex-prices/pkg/httpclient"
	"github.com/samvad-hq/ibex-prices/pkg/prices"
	"github.com/samvad-hq/ibex-prices/pkg/sources"
)

// Runner reads every configured price source once and reports what it got.
type Runner struct {
	sources  []sources.Source
	fetchers map[string]*prices.Fetcher
	checks   int
	log      logger.Logger
}

// NewRunner builds a runner from config. When no sources file is set, a
// single source is built from prices_url.
func NewRunner(cfg *config.Config, log logger.Logger) (*Runner, error) {
	return newRunner(cfg, log, nil)
}

func newRunner(cfg *config.Config, log logger.Logger, client httpclient.Client) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	reg, err := loadSources(cfg)
	if err != nil {
		return nil, err
	}
	list := reg.All()
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	if client == nil {
		client = httpclient.NewRestyClient(cfg.HTTPTimeout)
	}

	fetchers := make(map[string]*prices.Fetcher, len(list))
	for _, src := range list {
		f, err := prices.New(client, src.SourceURL,
			prices.WithLogger(log),
			prices.WithHeaders(sources.Headers(src)),
		)
		if err != nil {
			return nil, fmt.Errorf("build fetcher for source %s: %w", src.ID, err)
		}
		fetchers[src.ID] = f
	}

	return &Runner{
		sources:  list,
		fetchers: fetchers,
		checks:   cfg.ConsistencyChecks,
		log:      log,
	}, nil
}

func loadSources(cfg *config.Config) (*sources.Registry, error) {
	if cfg.SourcesFile != "" {
		reg, err := sources.LoadRegistry(cfg.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("load sources registry: %w", err)
		}
		return reg, nil
	}
	reg, err := sources.Single(cfg.PricesURL)
	if err != nil {
		return nil, fmt.Errorf("build default source: %w", err)
	}
	return reg, nil
}

// Summary describes one source's outcome.
type Summary struct {
	SourceID      string
	StatusCode    int
	Records       int
	HourlyEntries int
	Elapsed       time.Duration
}

// Run fetches each source once. Per-source failures are logged and joined
// into the returned error; sources are read in registry order.
func (r *Runner) Run(ctx context.Context) ([]Summary, error) {
	if r == nil || len(r.fetchers) == 0 {
		return nil, fmt.Errorf("runner is not initialized")
	}

	summaries := make([]Summary, 0, len(r.sources))
	var errs []error
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sum, err := r.runSource(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			continue
		}
		summaries = append(summaries, sum)
	}
	return summaries, errors.Join(errs...)
}

func (r *Runner) runSource(ctx context.Context, src sources.Source) (Summary, error) {
	start := time.Now()
	f := r.fetchers[src.ID]

	var (
		resp *prices.Response
		err  error
	)
	if r.checks > 1 {
		resp, err = f.FetchConsistent(ctx, r.checks)
	} else {
		resp, err = f.FetchPrices(ctx)
	}
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		SourceID:   src.ID,
		StatusCode: resp.StatusCode,
		Records:    len(resp.Records),
		Elapsed:    time.Since(start),
	}
	for _, rec := range resp.Records {
		sum.HourlyEntries += len(rec.HourlyData)
	}

	meta := map[string]any{
		"source_id":      sum.SourceID,
		"status":         sum.StatusCode,
		"records":        sum.Records,
		"hourly_entries": sum.HourlyEntries,
		"elapsed_ms":     sum.Elapsed.Milliseconds(),
	}
	if r.checks > 1 {
		meta["consistency_checks"] = r.checks
	}
	if sum.Records == 0 {
		r.log.WarnObj("source returned no records", "source_result", meta)
	} else {
		r.log.InfoObj("source fetched", "source_result", meta)
	}
	return sum, nil
}
