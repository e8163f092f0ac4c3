package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"PriceTracker/internal/model"
	"PriceTracker/internal/notifier"
)

// PriceSource supplies the board for the digest.
type PriceSource interface {
	CurrentPrices(ctx context.Context) (*model.PriceBoard, error)
}

// Poster delivers the digest to a channel.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string, blocks []notifier.Block) error
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron    *cron.Cron
	Prices  PriceSource
	Poster  Poster
	Channel string
	Title   string
	Logger  *zap.Logger
	Ctx     context.Context
	Now     func() time.Time
}

// NewScheduler creates a new Scheduler. Cron specs carry a seconds field.
func NewScheduler(ctx context.Context, prices PriceSource, poster Poster, channel, title string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Prices:  prices,
		Poster:  poster,
		Channel: channel,
		Title:   title,
		Logger:  logger,
		Ctx:     ctx,
		Now:     time.Now,
	}
}

// Register adds the digest task. It is a no-op when either the spec or the
// channel is empty.
func (s *Scheduler) Register(digestCron string) error {
	if digestCron == "" || s.Channel == "" {
		s.Logger.Info("price digest disabled")
		return nil
	}
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	s.Logger.Info("price digest registered",
		zap.String("cron", digestCron), zap.String("channel", s.Channel))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunDigestNow posts the digest immediately.
func (s *Scheduler) RunDigestNow() error {
	return s.postDigest()
}

func (s *Scheduler) digestTask() {
	if err := s.postDigest(); err != nil {
		s.Logger.Error("price digest failed", zap.Error(err))
	}
}

func (s *Scheduler) postDigest() error {
	board, err := s.Prices.CurrentPrices(s.Ctx)
	if err != nil {
		return fmt.Errorf("fetch current prices: %w", err)
	}
	now := s.Now()
	text := s.Title + " prices for " + model.FormatDateTime(now)
	if err := s.Poster.PostMessage(s.Ctx, s.Channel, text, notifier.DigestBlocks(s.Title, board, now)); err != nil {
		return fmt.Errorf("post digest: %w", err)
	}
	s.Logger.Info("price digest posted", zap.String("channel", s.Channel))
	return nil
}
