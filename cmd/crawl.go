// Package cmd defines the CLI commands for the dhc-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/dhc-order-crawler/internal/server"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Walks every configured year and case type",
		Long: `Obtains a session token, then probes case numbers for each case type
from the start year down to the floor year. Each existing case is stored
with its order documents archived. SIGINT or SIGTERM stops the walk.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, rt.cfg, rt.logger, server.ScopeCrawl)
	if err != nil {
		return fmt.Errorf("build crawler: %w", err)
	}
	defer app.Close()

	token, err := app.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain session token: %w", err)
	}
	rt.logger.Info("session token obtained")

	crawlCtx, cancelCrawl := context.WithCancel(ctx)
	defer cancelCrawl()
	g, gctx := errgroup.WithContext(crawlCtx)
	if app.API != nil {
		app.API.SetReady(true)
		g.Go(func() error {
			return app.Serve(gctx)
		})
	}
	g.Go(func() error {
		defer cancelCrawl()
		summary, err := app.Driver.Run(gctx, token)
		rt.logger.Info("crawl summary",
			zap.Int("probes", summary.Probes),
			zap.Int("hits", summary.Hits),
			zap.Int("misses", summary.Misses),
			zap.Int("persisted", summary.Persisted),
			zap.Int("persist_failures", summary.PersistFailures),
			zap.Int("documents_archived", summary.DocumentsArchived),
			zap.Int("documents_failed", summary.DocumentsFailed),
		)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			rt.logger.Warn("crawl interrupted", zap.Any("cursor", app.Driver.Cursor()))
			return nil
		}
		return fmt.Errorf("run crawl: %w", err)
	}
	return nil
}
