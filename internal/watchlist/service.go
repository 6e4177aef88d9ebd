// Package watchlist is the entry point for user actions on the watchlist.
// Actions that talk to the metadata provider or rewrite a title run as
// activities on the queue; flag changes are applied directly.
package watchlist

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/activity"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"github.com/mantonx/watchlist/internal/events"
	"github.com/mantonx/watchlist/internal/metadata"
	"github.com/mantonx/watchlist/internal/models"
	"github.com/mantonx/watchlist/internal/settings"
	"github.com/mantonx/watchlist/internal/store"
	"golang.org/x/text/language"
)

const eventSource = "watchlist"

// Images resolves provider images and stores user supplied ones
type Images interface {
	models.ImageResolver
	Save(kind models.Kind, id, role string, data []byte) (string, error)
	PosterPlaceholder() string
}

// Service runs user actions against the library
type Service struct {
	store    *store.Store
	client   metadata.Client
	images   Images
	settings *settings.Store
	queue    *activity.Queue
	bus      events.EventBus
	logger   hclog.Logger

	// manualMu serializes manual id allocation with the insert that uses it
	manualMu sync.Mutex

	now    func() time.Time
	locale func() string
}

// New creates the service. bus may be nil.
func New(st *store.Store, client metadata.Client, images Images, cfg *settings.Store, queue *activity.Queue, bus events.EventBus, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		store:    st,
		client:   client,
		images:   images,
		settings: cfg,
		queue:    queue,
		bus:      bus,
		logger:   logger.Named("watchlist"),
		now:      time.Now,
		locale:   systemLocale,
	}
}

// CanExit reports whether no activity is running
func (s *Service) CanExit() bool {
	return s.queue.CanExit()
}

// Search looks titles up on the provider in the preferred language
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidationError("search query is empty", "query")
	}
	if err := s.requireOnline(ctx, "search"); err != nil {
		return nil, err
	}
	lang, err := s.settings.Language(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := s.client.Search(ctx, query, lang)
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchResult, 0, len(remote))
	for _, r := range remote {
		out = append(out, models.SearchResultFromRemote(r))
	}
	return out, nil
}

// Bootstrap prepares a fresh installation: it downloads the provider
// languages, picks the preferred language from the locale and clears the
// first run flag. It does nothing after the first run, and is postponed
// while offline.
func (s *Service) Bootstrap(ctx context.Context) error {
	first, err := s.settings.FirstRun(ctx)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}
	offline, err := s.settings.OfflineMode(ctx)
	if err != nil {
		return err
	}
	if offline {
		s.logger.Info("offline, first run setup postponed")
		return nil
	}

	remote, err := s.client.ListLanguages(ctx)
	if err != nil {
		return err
	}
	langs := make([]models.Language, 0, len(remote))
	for _, l := range remote {
		langs = append(langs, models.LanguageFromRemote(l))
	}
	if err := s.store.InsertLanguages(ctx, langs); err != nil {
		return err
	}

	if code := localeLanguage(s.locale()); code != "" {
		known, err := s.store.GetLanguageByCode(ctx, code)
		if err != nil {
			return err
		}
		if known != nil {
			if err := s.settings.SetLanguage(ctx, code); err != nil {
				return err
			}
			s.logger.Info("preferred language set from locale", "language", code)
		}
	}

	if err := s.settings.SetFirstRun(ctx, false); err != nil {
		return err
	}
	return s.settings.SetOnboardComplete(ctx, true)
}

func (s *Service) requireOnline(ctx context.Context, op string) error {
	offline, err := s.settings.OfflineMode(ctx)
	if err != nil {
		return err
	}
	if offline {
		return apperrors.NewOfflineError(op)
	}
	return nil
}

func (s *Service) publish(eventType events.EventType, kind models.Kind, id, title, message string) {
	if s.bus == nil {
		return
	}
	event := events.NewEventWithData(eventType, eventSource, title, message, map[string]interface{}{
		"kind": string(kind),
		"id":   id,
	})
	event.Target = id
	if err := s.bus.PublishAsync(event); err != nil {
		s.logger.Debug("event not published", "type", eventType, "error", err)
	}
}

func checkKind(kind models.Kind) error {
	if kind != models.KindMovie && kind != models.KindSeries {
		return apperrors.NewValidationError("unknown content kind: "+string(kind), "kind")
	}
	return nil
}

func systemLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// localeLanguage returns the two letter language of a POSIX locale such as
// de_DE.UTF-8, or "" if there is none
func localeLanguage(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}
