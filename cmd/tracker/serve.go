package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PriceTracker/internal/notifier"
	"PriceTracker/internal/scheduler"
	"PriceTracker/internal/web"
)

var runDigestOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the price page, the Slack endpoint and the daily digest",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&runDigestOnStart, "digest-now", os.Getenv("RUN_ON_START") == "true",
		"post the price digest once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := newRecorder()
	defer rec.Close()
	col := newCollector(rec)

	var events *notifier.Handler
	var slack *notifier.SlackClient
	if cfg.SlackEnabled() {
		slack = notifier.NewSlackClient(cfg.Slack.BotToken, cfg.Slack.APIURL, cfg.Proxy)
		events = notifier.NewHandler(col, slack, cfg.Slack.Title, logger)
	} else {
		logger.Info("slack bot token not set, chat surface disabled")
	}

	srv := web.NewServer(web.Options{
		Title:         cfg.Slack.Title,
		PublicBaseURL: cfg.Server.BaseURL,
		ImageDir:      cfg.Server.ImageDir,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}, col, handlerOrNil(events), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.Addr)
	})

	if slack != nil {
		sched := scheduler.NewScheduler(gctx, col, slack, cfg.Slack.DigestChannel, cfg.Slack.Title, logger)
		if err := sched.Register(cfg.Schedule.DigestCron); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		sched.Start()
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
		if runDigestOnStart && cfg.Slack.DigestChannel != "" {
			g.Go(func() error {
				if err := sched.RunDigestNow(); err != nil {
					logger.Error("startup digest failed", zap.Error(err))
				}
				return nil
			})
		}
	}

	logger.Info("price tracker running", zap.String("addr", cfg.Server.Addr))
	err := g.Wait()
	if events != nil {
		// Let acknowledged chat requests finish before the recorder closes.
		events.Wait()
	}
	logger.Info("price tracker stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func handlerOrNil(h *notifier.Handler) http.Handler {
	if h == nil {
		return nil
	}
	return h
}
