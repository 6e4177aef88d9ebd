package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	"github.com/mantonx/watchlist/internal/config"
	"github.com/mantonx/watchlist/internal/events"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/models"
)

// Change is a release state transition found by a scan
type Change string

const (
	ChangeNewRelease  Change = "new-release"
	ChangeSoonRelease Change = "soon-release"
	ChangeEnded       Change = "ended"
)

// ReleaseChange is one title whose release state changed
type ReleaseChange struct {
	ID      string      `json:"id"`
	Kind    models.Kind `json:"kind"`
	Title   string      `json:"title"`
	Changes []Change    `json:"changes"`
}

// ScanResult is the outcome of a release scan
type ScanResult struct {
	Checked      int             `json:"checked"`
	Skipped      int             `json:"skipped"`
	Changes      []ReleaseChange `json:"changes"`
	Notification *events.Event   `json:"notification,omitempty"`
}

// Scanner checks notification-enabled titles for new and upcoming
// releases
type Scanner struct {
	library     Library
	client      metadata.Client
	settings    Settings
	bus         events.EventBus
	soonWindow  time.Duration
	discreteGap time.Duration
	now         func() time.Time
	logger      hclog.Logger
}

// NewScanner creates a scanner. bus may be nil, in which case the
// notification is only returned in the result.
func NewScanner(library Library, client metadata.Client, st Settings, bus events.EventBus, cfg config.SchedulerConfig, logger hclog.Logger) *Scanner {
	if cfg.SoonWindow <= 0 {
		cfg.SoonWindow = 7 * 24 * time.Hour
	}
	if cfg.DiscreteGap <= 0 {
		cfg.DiscreteGap = 14 * 24 * time.Hour
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scanner{
		library:     library,
		client:      client,
		settings:    st,
		bus:         bus,
		soonWindow:  cfg.SoonWindow,
		discreteGap: cfg.DiscreteGap,
		now:         time.Now,
		logger:      logger.Named("release-scan"),
	}
}

// Scan checks every notification-enabled non-manual title. Titles whose
// fetch fails are skipped. a may be nil.
func (s *Scanner) Scan(ctx context.Context, a *activity.Activity) (ScanResult, error) {
	var result ScanResult

	lang, err := s.settings.Language(ctx)
	if err != nil {
		return result, err
	}
	series, err := s.library.GetNotificationSeries(ctx)
	if err != nil {
		return result, err
	}
	movies, err := s.library.GetNotificationMovies(ctx)
	if err != nil {
		return result, err
	}

	today := truncateToDay(s.now())
	total := len(series) + len(movies)
	step := func() {
		result.Checked++
		if a != nil && total > 0 {
			a.SetProgress(float64(result.Checked) / float64(total))
		}
	}

	for _, stored := range series {
		change, ok := s.scanSeries(ctx, stored, lang, today)
		if !ok {
			result.Skipped++
		} else if change != nil {
			result.Changes = append(result.Changes, *change)
		}
		step()
	}
	for _, stored := range movies {
		change, ok := s.scanMovie(ctx, stored, lang, today)
		if !ok {
			result.Skipped++
		} else if change != nil {
			result.Changes = append(result.Changes, *change)
		}
		step()
	}

	result.Notification = s.notify(ctx, result.Changes)
	s.logger.Info("release scan finished", "checked", result.Checked, "skipped", result.Skipped, "changed", len(result.Changes))
	return result, nil
}

// scanSeries reports the change of one series, or nil if nothing changed.
// ok is false when the series was skipped.
func (s *Scanner) scanSeries(ctx context.Context, stored *models.Series, lang string, today time.Time) (*ReleaseChange, bool) {
	remote, err := s.client.GetSeries(ctx, stored.ID, lang)
	if err != nil {
		s.logger.Warn("skipping series", "id", stored.ID, "title", stored.Title, "error", err)
		return nil, false
	}

	var changes []Change
	remoteLast := remote.LastAirDate
	remoteNext := remote.NextAirDate()

	storedLastDate, hasStoredLast := models.ParseDate(stored.LastAirDate)
	remoteLastDate, hasRemoteLast := models.ParseDate(remoteLast)
	nextDate, hasNext := models.ParseDate(remoteNext)

	switch {
	case hasStoredLast && hasRemoteLast && remoteLastDate.After(storedLastDate):
		if err := s.setReleaseFlags(ctx, models.KindSeries, stored.ID, true, false); err != nil {
			s.logger.Warn("skipping series", "id", stored.ID, "error", err)
			return nil, false
		}
		changes = append(changes, ChangeNewRelease)

	case hasNext && s.withinSoonWindow(nextDate, today) && !stored.SoonRelease:
		if err := s.library.SetSoonReleaseFlag(ctx, models.KindSeries, stored.ID, true); err != nil {
			s.logger.Warn("skipping series", "id", stored.ID, "error", err)
			return nil, false
		}
		previous, hasPrevious := storedLastDate, hasStoredLast
		if !hasPrevious {
			previous, hasPrevious = remoteLastDate, hasRemoteLast
		}
		// Weekly shows stay quiet; only a return after a break is worth
		// a notification.
		if !hasPrevious || nextDate.Sub(previous) > s.discreteGap {
			changes = append(changes, ChangeSoonRelease)
		}
	}

	if stored.InProduction && !remote.InProduction {
		if err := s.library.SetNotificationFlag(ctx, models.KindSeries, stored.ID, false); err != nil {
			s.logger.Warn("failed to disable notifications", "id", stored.ID, "error", err)
		} else {
			changes = append(changes, ChangeEnded)
		}
	}

	if remoteLast != stored.LastAirDate || remoteNext != stored.NextAirDate || remote.InProduction != stored.InProduction {
		if err := s.library.UpdateReleaseInfo(ctx, stored.ID, remoteLast, remoteNext, remote.InProduction); err != nil {
			s.logger.Warn("failed to store release info", "id", stored.ID, "error", err)
		}
	}

	if len(changes) == 0 {
		return nil, true
	}
	return &ReleaseChange{ID: stored.ID, Kind: models.KindSeries, Title: stored.Title, Changes: changes}, true
}

// scanMovie reports the change of one movie, or nil if nothing changed. ok
// is false when the movie was skipped.
func (s *Scanner) scanMovie(ctx context.Context, stored *models.Movie, lang string, today time.Time) (*ReleaseChange, bool) {
	remote, err := s.client.GetMovie(ctx, stored.ID, lang)
	if err != nil {
		s.logger.Warn("skipping movie", "id", stored.ID, "title", stored.Title, "error", err)
		return nil, false
	}

	var changes []Change
	if release, ok := models.ParseDate(remote.ReleaseDate); ok {
		released := !release.After(today)
		storedDate, hasStored := models.ParseDate(stored.ReleaseDate)
		wasReleased := hasStored && !storedDate.After(today)

		switch {
		case released && (!wasReleased || stored.SoonRelease):
			if err := s.setReleaseFlags(ctx, models.KindMovie, stored.ID, true, false); err != nil {
				s.logger.Warn("skipping movie", "id", stored.ID, "error", err)
				return nil, false
			}
			// A released movie has nothing left to notify about.
			if err := s.library.SetNotificationFlag(ctx, models.KindMovie, stored.ID, false); err != nil {
				s.logger.Warn("failed to disable notifications", "id", stored.ID, "error", err)
			}
			changes = append(changes, ChangeNewRelease)

		case !released && s.withinSoonWindow(release, today) && !stored.SoonRelease:
			if err := s.library.SetSoonReleaseFlag(ctx, models.KindMovie, stored.ID, true); err != nil {
				s.logger.Warn("skipping movie", "id", stored.ID, "error", err)
				return nil, false
			}
			changes = append(changes, ChangeSoonRelease)
		}
	}

	if remote.ReleaseDate != stored.ReleaseDate {
		if err := s.library.UpdateMovieReleaseDate(ctx, stored.ID, remote.ReleaseDate); err != nil {
			s.logger.Warn("failed to store release date", "id", stored.ID, "error", err)
		}
	}

	if len(changes) == 0 {
		return nil, true
	}
	return &ReleaseChange{ID: stored.ID, Kind: models.KindMovie, Title: stored.Title, Changes: changes}, true
}

func (s *Scanner) setReleaseFlags(ctx context.Context, kind models.Kind, id string, newRelease, soonRelease bool) error {
	if err := s.library.SetNewReleaseFlag(ctx, kind, id, newRelease); err != nil {
		return err
	}
	return s.library.SetSoonReleaseFlag(ctx, kind, id, soonRelease)
}

// withinSoonWindow reports whether date is today or within the lookahead
func (s *Scanner) withinSoonWindow(date, today time.Time) bool {
	return !date.Before(today) && date.Sub(today) <= s.soonWindow
}

// notify publishes nothing for no changes, a notification naming the title
// for one change, and a summary for more
func (s *Scanner) notify(ctx context.Context, changes []ReleaseChange) *events.Event {
	if len(changes) == 0 {
		return nil
	}

	items := make([]events.ReleaseItem, 0, len(changes))
	titles := make([]string, 0, len(changes))
	for _, c := range changes {
		items = append(items, events.ReleaseItem{
			ID:     c.ID,
			Kind:   string(c.Kind),
			Title:  c.Title,
			Change: string(c.Changes[0]),
		})
		titles = append(titles, c.Title)
	}

	var title, message string
	if len(changes) == 1 {
		title, message = describe(changes[0])
	} else {
		title = fmt.Sprintf("%d titles have release updates", len(changes))
		message = strings.Join(titles, ", ")
	}

	event := events.NewEventWithData(events.EventReleaseNotification, "scheduler", title, message, map[string]interface{}{
		"count": len(changes),
		"items": items,
	})
	event.Priority = events.PriorityHigh
	if len(changes) == 1 {
		event.Target = changes[0].ID
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish release notification", "error", err)
		}
	}
	return &event
}

func describe(c ReleaseChange) (string, string) {
	switch c.Changes[0] {
	case ChangeNewRelease:
		if c.Kind == models.KindSeries {
			return "New episode available", fmt.Sprintf("A new episode of %s is out", c.Title)
		}
		return "New release available", fmt.Sprintf("%s is out", c.Title)
	case ChangeSoonRelease:
		if c.Kind == models.KindSeries {
			return "New episodes soon", fmt.Sprintf("%s returns soon", c.Title)
		}
		return "Coming soon", fmt.Sprintf("%s is released soon", c.Title)
	default:
		return "Series ended", fmt.Sprintf("%s has ended", c.Title)
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
