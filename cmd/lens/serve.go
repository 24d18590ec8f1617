package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/lens/logger"
	"github.com/spektr-org/lens/server"
	"github.com/spektr-org/lens/source"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over HTTP",
		Long: `Serve the record set over HTTP. The record set is loaded once and cached;
POST /api/reload or --watch (local files only) picks up changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			cache := source.NewCache(a.loader())
			srv := server.New(cache, loc,
				server.WithProfile(a.cfg.Profile),
				server.WithEngineOptions(a.cfg.EngineOptions()...),
				server.WithVersion(version),
			)

			// Fail at startup on a bad source.
			frame, err := cache.Get(cmd.Context(), loc)
			if err != nil {
				return err
			}
			logger.Infof("📂 lens: %s ready, %d records", loc, frame.Len())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			if a.cfg.Server.Watch {
				g.Go(func() error { return source.Watch(ctx, cache, loc) })
			}
			g.Go(func() error {
				defer cancel()
				return srv.ListenAndServe(ctx, a.cfg.Server.Addr, a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout)
			})
			return g.Wait()
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("watch", false, "reload when the source file changes")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.watch", cmd.Flags().Lookup("watch"))
	return cmd
}
