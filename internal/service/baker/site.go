package baker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/domain/dto"
	"github.com/ougirez/databaker/internal/pkg/bakecache"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/pkg/logger"
	"github.com/ougirez/databaker/internal/pkg/progress"
	"github.com/ougirez/databaker/internal/pkg/render"
	"github.com/ougirez/databaker/internal/pkg/sink"
	"github.com/ougirez/databaker/internal/pkg/store"
	"github.com/ougirez/databaker/internal/service/charts"
	"github.com/ougirez/databaker/internal/service/countryprofile"
	"github.com/ougirez/databaker/internal/service/dataset"
	"github.com/ougirez/databaker/internal/service/explorer"
	"github.com/ougirez/databaker/internal/service/indicators"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	PhaseCountries = "countries"
	PhaseCharts    = "charts"
	PhaseExplorers = "explorers"
	PhaseRedirects = "explorer redirects"
	PhaseDatasets  = "datasets"
)

type SiteOpts struct {
	BaseURL     string
	Countries   *countries.List
	Explorers   *explorer.Catalog
	Redirects   *explorer.RedirectTable
	Progress    *progress.Reporter
	Concurrency int
}

// SiteBaker bakes the whole public site once. Its cache lives as long as the SiteBaker,
// so build a new one for every run.
type SiteBaker struct {
	baker     *Baker
	opts      SiteOpts
	profiles  *countryprofile.Service
	charts    *charts.Service
	datasets  *dataset.Service
	runID     string
	startedAt time.Time
}

func NewSiteBaker(store store.Store, renderer render.Renderer, sink sink.Sink, opts SiteOpts) *SiteBaker {
	cache := bakecache.New()
	return &SiteBaker{
		baker:    New(renderer, sink, WithProgress(opts.Progress), WithConcurrency(opts.Concurrency)),
		opts:     opts,
		profiles: countryprofile.NewService(indicators.NewService(store, cache), opts.Countries, opts.BaseURL),
		charts:   charts.NewService(store, opts.BaseURL),
		datasets: dataset.NewService(store),
		runID:    uuid.NewString(),
	}
}

func (s *SiteBaker) RunID() string {
	return s.runID
}

// BakeAll bakes every phase. Broken references abort the run before anything is written.
// Failed pages of collection phases do not stop the run; they are returned together at the end.
func (s *SiteBaker) BakeAll(ctx context.Context) error {
	ctx = logger.With(ctx, zap.String("bake_run", s.runID))
	s.startedAt = time.Now()
	logger.Infof(ctx, "bake: starting run %s", s.runID)

	redirects, err := s.resolveRedirects()
	if err != nil {
		return err
	}

	var errs error
	collections := []struct {
		phase string
		pages func(ctx context.Context) ([]Page, error)
	}{
		{PhaseCountries, s.countryPages},
		{PhaseCharts, s.chartPages},
		{PhaseExplorers, s.explorerPages},
	}
	for _, coll := range collections {
		pages, err := coll.pages(ctx)
		if err != nil {
			return fmt.Errorf("bake %s: %w", coll.phase, err)
		}
		if err := s.baker.BakeCollection(ctx, coll.phase, pages); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = multierr.Append(errs, err)
		}
	}

	if err := s.baker.BakeUnit(ctx, PhaseRedirects, s.redirectPages(redirects)); err != nil {
		return multierr.Append(errs, err)
	}

	pages, err := s.datasetPages(ctx)
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("bake %s: %w", PhaseDatasets, err))
	}
	if err := s.baker.BakeCollection(ctx, PhaseDatasets, pages); err != nil {
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		logger.Errorf(ctx, "bake: run %s finished with %d failed pages in %s", s.runID, len(multierr.Errors(errs)), time.Since(s.startedAt))
		return errs
	}
	logger.Infof(ctx, "bake: run %s finished in %s", s.runID, time.Since(s.startedAt))
	return nil
}

func (s *SiteBaker) resolveRedirects() ([]explorer.ResolvedRedirect, error) {
	if s.opts.Redirects == nil || len(s.opts.Redirects.Redirects) == 0 {
		return nil, nil
	}

	migrations, err := s.opts.Redirects.MigrationsByID()
	if err != nil {
		return nil, err
	}

	var programs []*domain.ExplorerProgram
	if s.opts.Explorers != nil {
		programs = s.opts.Explorers.All()
	}
	return explorer.ResolveRedirects(s.opts.Redirects.Redirects, migrations, programs)
}

func (s *SiteBaker) countryPages(ctx context.Context) ([]Page, error) {
	all := s.opts.Countries.All()
	pages := make([]Page, 0, len(all)+1)
	pages = append(pages, s.baker.TemplatePage("countries.html", render.PageCountriesIndex, Static(s.profiles.IndexPage())))
	for _, c := range all {
		slug := c.Slug
		pages = append(pages, s.baker.TemplatePage(CountryPath(slug), render.PageCountryProfile, func(ctx context.Context) (any, error) {
			return s.profiles.Page(ctx, slug)
		}))
	}
	return pages, nil
}

func (s *SiteBaker) chartPages(ctx context.Context) ([]Page, error) {
	return []Page{
		s.baker.TemplatePage("charts.html", render.PageChartsIndex, func(ctx context.Context) (any, error) {
			return s.charts.IndexPage(ctx)
		}),
	}, nil
}

func (s *SiteBaker) explorerPages(ctx context.Context) ([]Page, error) {
	if s.opts.Explorers == nil {
		return nil, nil
	}

	published := s.opts.Explorers.Published()
	pages := make([]Page, 0, len(published))
	for _, p := range published {
		pages = append(pages, s.baker.TemplatePage(ExplorerPath(p.Slug), render.PageExplorer, Static(&dto.ExplorerPage{
			BaseURL: s.opts.BaseURL,
			Program: p,
		})))
	}
	return pages, nil
}

func (s *SiteBaker) redirectPages(redirects []explorer.ResolvedRedirect) []Page {
	pages := make([]Page, 0, len(redirects))
	for _, r := range redirects {
		pages = append(pages, s.baker.TemplatePage(r.Path, render.PageExplorer, Static(&dto.ExplorerPage{
			BaseURL:      s.opts.BaseURL,
			Program:      r.Program,
			MigrationID:  r.Migration.ID,
			BaseQueryStr: r.Rule.BaseQueryStr,
		})))
	}
	return pages
}

func (s *SiteBaker) datasetPages(ctx context.Context) ([]Page, error) {
	datasets, err := s.datasets.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, 2*len(datasets))
	for _, d := range datasets {
		id := d.ID
		name := dataset.Filename(d)
		pages = append(pages,
			Page{
				Path: "datasets/" + name + ".csv",
				Render: func(ctx context.Context) ([]byte, error) {
					return s.datasets.CSV(ctx, id)
				},
			},
			Page{
				Path: "datasets/" + name + ".datapackage.json",
				Render: func(ctx context.Context) ([]byte, error) {
					return s.datasets.DatapackageJSON(ctx, id)
				},
			},
		)
	}
	return pages, nil
}

func CountryPath(slug string) string {
	return "country/" + slug + ".html"
}

func ExplorerPath(slug string) string {
	return "explorers/" + slug + ".html"
}
