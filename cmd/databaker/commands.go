package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ougirez/databaker/internal/api"
	"github.com/ougirez/databaker/internal/api/controller"
	"github.com/ougirez/databaker/internal/pkg/config"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/pkg/logger"
	"github.com/ougirez/databaker/internal/pkg/progress"
	"github.com/ougirez/databaker/internal/pkg/render"
	"github.com/ougirez/databaker/internal/pkg/sink"
	"github.com/ougirez/databaker/internal/pkg/store"
	"github.com/ougirez/databaker/internal/pkg/store/xpgx"
	"github.com/ougirez/databaker/internal/service/baker"
	"github.com/ougirez/databaker/internal/service/denormalize"
	"github.com/ougirez/databaker/internal/service/explorer"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "databaker",
		Short:         "Admin API and static site baker for published charts and datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return logger.Init(cfg.LogLevel, cfg.LogDevelopment)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a config file")

	root.AddCommand(a.serveCmd(), a.bakeCmd(), a.denormalizeCmd())
	return root
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, store.Store, error) {
	pool, err := xpgx.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("xpgx.Connect: %w", err)
	}
	return pool, store.NewStore(pool), nil
}

func (a *app) newJob(st store.Store, list *countries.List) *denormalize.Job {
	return denormalize.NewJob(st, list,
		denormalize.WithWindow(a.cfg.Denormalize.Window()))
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, st, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			list, err := countries.Load(a.cfg.CountriesFile)
			if err != nil {
				return fmt.Errorf("countries.Load: %w", err)
			}
			catalog, err := explorer.LoadCatalog(a.cfg.ExplorersDir)
			if err != nil {
				return fmt.Errorf("explorer.LoadCatalog: %w", err)
			}
			if _, err := os.Stat(a.cfg.ExplorersDir); err == nil {
				if _, err := catalog.Watch(ctx); err != nil {
					logger.Warnf(ctx, "explorer catalog will not reload: %s", err)
				}
			}
			renderer, err := render.New()
			if err != nil {
				return err
			}

			runner := denormalize.NewRunner(a.newJob(st, list), a.cfg.Denormalize.Await)
			defer runner.Wait()

			svc, err := api.NewAPIService(controller.NewController(controller.Deps{
				Store:     st,
				Explorers: catalog,
				Countries: list,
				Renderer:  renderer,
				Runner:    runner,
				BaseURL:   a.cfg.Bake.BaseURL,
			}), a.cfg.AllowOrigins)
			if err != nil {
				return err
			}

			go svc.Serve(a.cfg.ServerAddr)
			logger.Infof(ctx, "serving admin API on %s", a.cfg.ServerAddr)

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return svc.Shutdown(shutdownCtx)
		},
	}
}

func (a *app) bakeCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "bake",
		Short: "Bake the public site into the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, st, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			list, err := countries.Load(a.cfg.CountriesFile)
			if err != nil {
				return fmt.Errorf("countries.Load: %w", err)
			}
			catalog, err := explorer.LoadCatalog(a.cfg.ExplorersDir)
			if err != nil {
				return fmt.Errorf("explorer.LoadCatalog: %w", err)
			}
			redirects, err := explorer.LoadRedirects(a.cfg.RedirectsFile)
			if err != nil {
				return fmt.Errorf("explorer.LoadRedirects: %w", err)
			}

			if refresh {
				if _, err := a.newJob(st, list).Materialize(ctx, nil); err != nil {
					return fmt.Errorf("denormalize: %w", err)
				}
			}

			renderer, err := render.New()
			if err != nil {
				return err
			}
			out, err := sink.NewFileSink(a.cfg.Bake.OutputDir)
			if err != nil {
				return err
			}

			site := baker.NewSiteBaker(st, renderer, out, baker.SiteOpts{
				BaseURL:     a.cfg.Bake.BaseURL,
				Countries:   list,
				Explorers:   catalog,
				Redirects:   redirects,
				Progress:    progress.New(cmd.OutOrStdout()),
				Concurrency: a.cfg.Bake.Concurrency,
			})
			return site.BakeAll(ctx)
		},
	}
	cmd.Flags().BoolVar(&refresh, "denormalize", false, "regenerate country_latest_data before baking")
	return cmd
}

func (a *app) denormalizeCmd() *cobra.Command {
	var variableIDs []int64

	cmd := &cobra.Command{
		Use:   "denormalize",
		Short: "Regenerate country_latest_data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, st, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			list, err := countries.Load(a.cfg.CountriesFile)
			if err != nil {
				return fmt.Errorf("countries.Load: %w", err)
			}

			var ids []int64
			if len(variableIDs) > 0 {
				ids = variableIDs
			}

			// the process exits afterwards, so a background run is still waited for
			outcome := <-a.newJob(st, list).Start(ctx, ids)
			if outcome.Err != nil {
				return outcome.Err
			}

			res := outcome.Result
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows for %d variables (%d orphaned values dropped)\n",
				res.RowsWritten, len(res.VariableIDs), res.Dropped.Orphans())
			return nil
		},
	}
	cmd.Flags().Int64SliceVar(&variableIDs, "variable-ids", nil, "variables to refresh, all indicator variables when empty")
	return cmd
}
