package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"calayout/internal/config"
	"calayout/internal/feed"
	"calayout/internal/layout"
	appLog "calayout/internal/log"
	"calayout/internal/model"
	"calayout/internal/timeutil"
)

// maxLayoutSpanDays bounds /api/layout to one padded month view.
const maxLayoutSpanDays = 42

// Server exposes the current events and their computed layouts over HTTP.
type Server struct {
	cfg   *config.Config
	store *feed.Store
	mux   *http.ServeMux
	now   func() time.Time
}

// NewServer constructs a Server reading from store.
func NewServer(cfg *config.Config, store *feed.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled treats an empty username or password as disabled.
func (s *Server) basicAuthEnabled() bool {
	return s.cfg != nil && s.cfg.BasicAuth != nil &&
		s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every path except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calayout", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON shape of /api/events.
type eventsResponse struct {
	Events          []model.Event `json:"events"`
	TruncatedUIDs   []string      `json:"truncated_uids,omitempty"`
	RangeStart      time.Time     `json:"range_start"`
	RangeEnd        time.Time     `json:"range_end"`
	UpdatedAt       time.Time     `json:"updated_at"`
	LastError       string        `json:"last_error,omitempty"`
	DisplayTimeZone string        `json:"display_timezone"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	events := snap.Events
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:          events,
		TruncatedUIDs:   snap.TruncatedUIDs,
		RangeStart:      snap.RangeStart,
		RangeEnd:        snap.RangeEnd,
		UpdatedAt:       snap.UpdatedAt,
		LastError:       snap.LastRefreshErr,
		DisplayTimeZone: s.cfg.Location().String(),
	})
}

// layoutResponse is the JSON shape of /api/layout.
type layoutResponse struct {
	Start    string        `json:"start"`
	End      string        `json:"end"`
	View     string        `json:"view"`
	TimeZone string        `json:"timezone"`
	Days     model.Layouts `json:"days"`
}

// handleLayout computes layouts over the current snapshot.
//
// GET /api/layout?start=2023-10-10&end=2023-10-12&view=week
//   - start: first visible date (default today in the configured zone)
//   - end:   last visible date (default start); start..end spans at most 42 days
//   - view:  month|week|workweek|3day|1day (default config view)
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	loc := s.cfg.Location()
	q := r.URL.Query()

	start := q.Get("start")
	if start == "" {
		start = timeutil.CalendarDate(s.now(), loc)
	}
	end := q.Get("end")
	if end == "" {
		end = start
	}

	first, err := timeutil.ParseCalendarDate(start, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	last, err := timeutil.ParseCalendarDate(end, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if span := timeutil.DayDiff(last, first) + 1; span > maxLayoutSpanDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("range of %d days exceeds %d", span, maxLayoutSpanDays))
		return
	}

	view := s.cfg.ViewType()
	if v := q.Get("view"); v != "" {
		parsed, err := timeutil.ParseViewType(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		view = parsed
	}

	layouts, err := layout.Generate(s.store.Snapshot().Events, layout.Request{
		StartCalendarDate: start,
		EndCalendarDate:   end,
		PrimaryCalendarID: s.cfg.PrimaryCalendar,
		Location:          loc,
		View:              view,
		WeekStartOffset:   s.cfg.WeekStartOffset(),
		Options:           s.cfg.Layout,
	})
	if err != nil {
		if errors.Is(err, timeutil.ErrInvalidRange) {
			appLog.Error("api layout: invalid event data", err)
			writeError(w, http.StatusInternalServerError, "invalid event data")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appLog.Debug("api layout", "start", start, "end", end, "view", view, "days", len(layouts))
	writeJSON(w, http.StatusOK, layoutResponse{
		Start:    start,
		End:      end,
		View:     string(view),
		TimeZone: loc.String(),
		Days:     layouts,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
