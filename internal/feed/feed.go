// Package feed keeps the current event snapshot fed to the layout engine.
// A Store is refreshed from the configured ICS sources, either on demand or
// on a cron schedule, and hands out copies to readers.
package feed

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calayout/internal/config"
	"calayout/internal/ics"
	appLog "calayout/internal/log"
	"calayout/internal/model"
)

// Fetcher is the part of ics.Fetcher the store needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, error)
}

// Snapshot is an immutable view of the last refresh.
type Snapshot struct {
	Events          []model.Event
	TruncatedUIDs   []string
	RangeStart      time.Time
	RangeEnd        time.Time
	UpdatedAt       time.Time
	LastRefreshErr  string
	SourceCount     int
	FetchedFromDisk int
}

// Store holds the latest snapshot.
type Store struct {
	cfg     *config.Config
	fetcher Fetcher
	now     func() time.Time

	refreshMu sync.Mutex // serializes Refresh

	mu   sync.RWMutex
	snap Snapshot
}

// NewStore builds a store for cfg's ICS sources.
func NewStore(cfg *config.Config, fetcher Fetcher) *Store {
	return &Store{cfg: cfg, fetcher: fetcher, now: time.Now}
}

// SetEvents replaces the snapshot with a fixed list, bypassing ICS.
func (s *Store) SetEvents(events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Events: slices.Clone(events), UpdatedAt: s.now()}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Events = slices.Clone(s.snap.Events)
	out.TruncatedUIDs = slices.Clone(s.snap.TruncatedUIDs)
	return out
}

func (s *Store) sources() []ics.Source {
	out := make([]ics.Source, 0, len(s.cfg.ICS))
	for _, c := range s.cfg.ICS {
		if c.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: c.CalendarID(), URL: c.URL})
	}
	return out
}

// Refresh runs fetch, parse and expand over all sources and swaps in the
// new snapshot. Per-source failures are logged and recorded; the snapshot
// is only left untouched when every source failed.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	loc := s.cfg.Location()
	now := s.now().In(loc)
	rangeStart := now.AddDate(0, 0, -s.cfg.BackfillDays)
	rangeEnd := now.AddDate(0, 0, s.cfg.HorizonDays)

	sources := s.sources()
	results, fetchErr := s.fetcher.FetchAll(ctx, sources)
	if len(sources) > 0 && len(results) == 0 && fetchErr != nil {
		s.recordError(fetchErr)
		return fetchErr
	}

	var parsed []ics.ParsedEvent
	fromDisk := 0
	var errs []error
	if fetchErr != nil {
		errs = append(errs, fetchErr)
	}
	for _, res := range results {
		if res.FromCache {
			fromDisk++
		}
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ics.ExpandEvents(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		s.recordError(err)
		return err
	}

	joined := errors.Join(errs...)
	snap := Snapshot{
		Events:          expanded.Events,
		TruncatedUIDs:   expanded.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		UpdatedAt:       s.now(),
		SourceCount:     len(sources),
		FetchedFromDisk: fromDisk,
	}
	if joined != nil {
		snap.LastRefreshErr = joined.Error()
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	appLog.Info("feed refreshed",
		"sources", len(sources),
		"from_cache", fromDisk,
		"events", len(snap.Events),
		"truncated", len(snap.TruncatedUIDs),
	)
	return joined
}

func (s *Store) recordError(err error) {
	appLog.Error("feed refresh failed", err)
	s.mu.Lock()
	s.snap.LastRefreshErr = err.Error()
	s.mu.Unlock()
}

// Scheduler refreshes a Store on a cron schedule.
type Scheduler struct {
	store *Store
	cron  *cron.Cron
}

// NewScheduler parses spec (standard 5-field cron) and binds it to store.
func NewScheduler(store *Store, spec string) (*Scheduler, error) {
	c := cron.New()
	sch := &Scheduler{store: store, cron: c}
	if _, err := c.AddFunc(spec, sch.tick); err != nil {
		return nil, err
	}
	return sch, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	_ = s.store.Refresh(ctx) // logged by Refresh
}

// Run refreshes once, then on schedule until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	_ = s.store.Refresh(ctx)

	s.cron.Start()
	appLog.Info("feed scheduler started", "entries", len(s.cron.Entries()))

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	appLog.Info("feed scheduler stopped")
}
