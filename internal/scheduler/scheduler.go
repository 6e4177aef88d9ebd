// Package scheduler decides when the library refresh and the release scan
// are due and submits them as activities.
//
// Last-check timestamps are persisted when the work is submitted, not when
// it completes. A crash mid-refresh therefore skips that refresh instead of
// retrying it on every launch.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/settings"
)

// Activity titles. A check never submits while an activity with the same
// title is still running.
const (
	RefreshTitle = "Update library"
	ScanTitle    = "Check for new releases"
)

// Settings is the part of the settings store the scheduler reads
type Settings interface {
	Language(ctx context.Context) (string, error)
	OfflineMode(ctx context.Context) (bool, error)
	UpdateFrequency(ctx context.Context) (settings.Frequency, error)
	LastUpdate(ctx context.Context) (time.Time, error)
	SetLastUpdate(ctx context.Context, t time.Time) error
	LastNotificationCheck(ctx context.Context) (time.Time, error)
	SetLastNotificationCheck(ctx context.Context, t time.Time) error
	NeedsUpdate(ctx context.Context) (bool, error)
	SetNeedsUpdate(ctx context.Context, v bool) error
}

// Scheduler submits refreshes and release scans when they are due
type Scheduler struct {
	queue     *activity.Queue
	settings  Settings
	refresher *Refresher
	scanner   *Scanner
	cfg       config.SchedulerConfig
	logger    hclog.Logger
}

// New creates a scheduler
func New(queue *activity.Queue, st Settings, refresher *Refresher, scanner *Scanner, cfg config.SchedulerConfig, logger hclog.Logger) *Scheduler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.NotificationInterval <= 0 {
		cfg.NotificationInterval = 12 * time.Hour
	}
	return &Scheduler{
		queue:     queue,
		settings:  st,
		refresher: refresher,
		scanner:   scanner,
		cfg:       cfg,
		logger:    logger.Named("scheduler"),
	}
}

// CheckRefresh submits a library refresh when the configured frequency has
// elapsed since the last one, or when a schema migration asked for one. It
// reports whether one was submitted.
func (s *Scheduler) CheckRefresh(ctx context.Context, now time.Time) (bool, error) {
	freq, err := s.settings.UpdateFrequency(ctx)
	if err != nil {
		return false, err
	}
	last, err := s.settings.LastUpdate(ctx)
	if err != nil {
		return false, err
	}
	needed, err := s.settings.NeedsUpdate(ctx)
	if err != nil {
		return false, err
	}
	if !needed && !freq.Due(last, now) {
		return false, nil
	}

	submitted, err := s.submit(ctx, RefreshTitle, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		return s.refresher.Refresh(ctx, a)
	})
	if err != nil || !submitted {
		return false, err
	}
	s.logger.Info("library refresh scheduled", "frequency", freq, "last", last, "migration", needed)
	if needed {
		if err := s.settings.SetNeedsUpdate(ctx, false); err != nil {
			return true, err
		}
	}
	return true, s.settings.SetLastUpdate(ctx, now)
}

// CheckNotifications submits a release scan when the notification interval
// has elapsed since the last one. It reports whether one was submitted.
func (s *Scheduler) CheckNotifications(ctx context.Context, now time.Time) (bool, error) {
	last, err := s.settings.LastNotificationCheck(ctx)
	if err != nil {
		return false, err
	}
	if !last.IsZero() && now.Before(last.Add(s.cfg.NotificationInterval)) {
		return false, nil
	}

	submitted, err := s.submit(ctx, ScanTitle, func(ctx context.Context, a *activity.Activity) (interface{}, error) {
		return s.scanner.Scan(ctx, a)
	})
	if err != nil || !submitted {
		return false, err
	}
	s.logger.Info("release scan scheduled", "last", last)
	return true, s.settings.SetLastNotificationCheck(ctx, now)
}

func (s *Scheduler) submit(ctx context.Context, title string, work activity.WorkFunc) (bool, error) {
	offline, err := s.settings.OfflineMode(ctx)
	if err != nil {
		return false, err
	}
	if offline {
		s.logger.Debug("offline, not scheduling", "activity", title)
		return false, nil
	}
	if s.queue.Running(title) {
		s.logger.Debug("previous run still in progress", "activity", title)
		return false, nil
	}
	err = s.queue.Submit(activity.New(title, activity.KindUpdate, work), nil)
	if errors.Is(err, activity.ErrClosed) {
		s.logger.Debug("queue closed, not scheduling", "activity", title)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Run performs both checks now and then every CheckInterval until ctx is
// done
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkAll(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.checkAll(ctx, now)
		}
	}
}

func (s *Scheduler) checkAll(ctx context.Context, now time.Time) {
	if _, err := s.CheckRefresh(ctx, now); err != nil {
		s.logger.Error("refresh check failed", "error", err)
	}
	if _, err := s.CheckNotifications(ctx, now); err != nil {
		s.logger.Error("release scan check failed", "error", err)
	}
}
