package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calayout/internal/config"
	"calayout/internal/feed"
	"calayout/internal/model"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *feed.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.PrimaryCalendar = "primary"
	cfg.View = "1day"
	if mutate != nil {
		mutate(cfg)
	}
	store := feed.NewStore(cfg, nil)
	store.SetEvents([]model.Event{
		{ID: "A", CalendarID: "primary", Start: time.Date(2023, 10, 10, 9, 0, 0, 0, time.UTC), End: time.Date(2023, 10, 10, 10, 0, 0, 0, time.UTC)},
		{ID: "B", CalendarID: "primary", Start: time.Date(2023, 10, 10, 9, 30, 0, 0, time.UTC), End: time.Date(2023, 10, 10, 10, 30, 0, 0, time.UTC)},
	})
	s := NewServer(cfg, store)
	s.now = func() time.Time { return time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC) }
	return s, store
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestLayoutDefaultsToToday(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/layout")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2023-10-10", resp.Start)
	assert.Equal(t, "1day", resp.View)

	day, ok := resp.Days["2023-10-10"]
	require.True(t, ok)
	require.Len(t, day.PartDayEventsLayout, 2)
	assert.Equal(t, "A", day.PartDayEventsLayout[0].Event.ID)
	assert.Equal(t, &model.Collisions{Total: 2, Order: 0}, day.PartDayEventsLayout[0].Collisions)
	assert.Equal(t, 76.0, day.PartDayEventsLayout[0].Position.Width)
}

func TestLayoutWeekView(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/layout?start=2023-10-10&view=week")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Days, 7)
}

func TestLayoutBadRequests(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/layout?view=fortnight")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s.Handler(), "/api/layout?start=tomorrow")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")

	rec = get(t, s.Handler(), "/api/layout?start=2023-10-10&end=not-a-date")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLayoutRangeLimit(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"one month view", "start=2023-10-01&end=2023-11-11", http.StatusOK},
		{"one day over", "start=2023-10-01&end=2023-11-12", http.StatusBadRequest},
		{"whole calendar", "start=0001-01-01&end=9999-12-31", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s.Handler(), "/api/layout?"+tt.query)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestEvents(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, "UTC", resp.DisplayTimeZone)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "user", Password: "pass"}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/events").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("user", "pass")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
