package fpl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"github.com/riskibarqy/fpl-assistant/internal/platform/resilience"
)

const bootstrapBody = `{
	"events": [
		{"id": 1, "name": "Gameweek 1", "finished": true, "is_current": false, "is_next": false},
		{"id": 2, "name": "Gameweek 2", "finished": false, "is_current": true, "is_next": false},
		{"id": 3, "name": "Gameweek 3", "finished": false, "is_current": false, "is_next": true}
	],
	"teams": [
		{"id": 1, "name": "Arsenal", "short_name": "ARS"},
		{"id": 2, "name": "Liverpool", "short_name": "LIV"}
	],
	"elements": [
		{"id": 100, "web_name": "Saka", "team": 1, "element_type": 3, "now_cost": 105, "form": "7.5", "total_points": 42, "event_points": 9},
		{"id": 200, "web_name": "Salah", "team": 2, "element_type": 3, "now_cost": 131, "form": "8.1", "total_points": 51, "event_points": 12}
	],
	"element_types": [
		{"id": 1, "singular_name_short": "GKP"},
		{"id": 2, "singular_name_short": "DEF"},
		{"id": 3, "singular_name_short": "MID"},
		{"id": 4, "singular_name_short": "FWD"}
	]
}`

func TestFetchStaticData_CachesBootstrap(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bootstrap-static/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bootstrapBody))
	}))
	defer srv.Close()

	client := newTestClient(srv)
	for i := 0; i < 3; i++ {
		data, err := client.FetchStaticData(context.Background())
		if err != nil {
			t.Fatalf("fetch static data: %v", err)
		}

		element, ok := data.ElementByID(200)
		if !ok || element.WebName != "Salah" {
			t.Fatalf("unexpected element lookup: %+v ok=%v", element, ok)
		}
		club, ok := data.ClubByID(1)
		if !ok || club.ShortName != "ARS" {
			t.Fatalf("unexpected club lookup: %+v ok=%v", club, ok)
		}
		if short, ok := data.PositionShort(3); !ok || short != "MID" {
			t.Fatalf("unexpected position lookup: %s ok=%v", short, ok)
		}
	}

	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call with cache, got %d", calls.Load())
	}
}

func TestFetchStaticData_MissingElementsIsParseError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events": [{"id": 1}], "teams": [{"id": 1}], "element_types": [{"id": 1}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchStaticData(context.Background())
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestFetchManagerPicks_DecodesSquad(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entry/1178124/event/2/picks/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"active_chip": null,
			"entry_history": {"event": 2, "points": 61, "total_points": 130, "overall_rank": 241763, "bank": 23, "value": 1004, "event_transfers": 1},
			"picks": [
				{"element": 100, "position": 1, "multiplier": 1, "is_captain": false, "is_vice_captain": false},
				{"element": 200, "position": 2, "multiplier": 2, "is_captain": true, "is_vice_captain": false}
			]
		}`))
	}))
	defer srv.Close()

	picks, err := newTestClient(srv).FetchManagerPicks(context.Background(), 1178124, 2)
	if err != nil {
		t.Fatalf("fetch picks: %v", err)
	}

	if len(picks.Picks) != 2 {
		t.Fatalf("expected 2 picks, got %d", len(picks.Picks))
	}
	if !picks.Picks[1].IsCaptain || picks.Picks[1].Multiplier != 2 {
		t.Fatalf("unexpected captain pick: %+v", picks.Picks[1])
	}
	if picks.EntryHistory.Bank != 23 || picks.EntryHistory.EventTransfers != 1 {
		t.Fatalf("unexpected entry history: %+v", picks.EntryHistory)
	}
}

func TestFetchManagerPicks_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchManagerPicks(context.Background(), 99999999, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single attempt for 404, got %d", calls.Load())
	}
}

func TestFetchManagerHistory_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current": [{"event": 1, "points": 58, "total_points": 58, "overall_rank": 901233, "bank": 5, "value": 1000, "event_transfers": 0}], "past": [], "chips": []}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		MaxRetries:     1,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	history, err := client.FetchManagerHistory(context.Background(), 1178124)
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected retry after transient status, got %d calls", calls.Load())
	}
	if len(history.Current) != 1 || history.Current[0].TotalPoints != 58 {
		t.Fatalf("unexpected history: %+v", history.Current)
	}
}

func TestFetchManagerEntry_SendsBrowserUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "Mozilla/5.0" {
			t.Fatalf("unexpected user agent: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1178124, "name": "Klopp's Kids", "summary_overall_points": 130, "summary_overall_rank": 241763, "last_deadline_bank": 23}`))
	}))
	defer srv.Close()

	entry, err := newTestClient(srv).FetchManagerEntry(context.Background(), 1178124)
	if err != nil {
		t.Fatalf("fetch entry: %v", err)
	}
	if entry.Name != "Klopp's Kids" {
		t.Fatalf("unexpected team name: %s", entry.Name)
	}
}

func TestFetchFixtures_QueriesByEvent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fixtures/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("event"); got != "3" {
			t.Fatalf("unexpected event query: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 31, "event": 3, "team_h": 1, "team_a": 2, "team_h_difficulty": 4, "team_a_difficulty": 3, "kickoff_time": "2026-08-29T14:00:00Z"}]`))
	}))
	defer srv.Close()

	fixtures, err := newTestClient(srv).FetchFixtures(context.Background(), 3)
	if err != nil {
		t.Fatalf("fetch fixtures: %v", err)
	}
	if len(fixtures) != 1 || fixtures[0].TeamH != 1 || fixtures[0].TeamA != 2 {
		t.Fatalf("unexpected fixtures: %+v", fixtures)
	}
}

func TestFetchManagerPicks_RejectsInvalidArgs(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})
	if _, err := client.FetchManagerPicks(context.Background(), 0, 1); err == nil {
		t.Fatal("expected error for zero manager id")
	}
	if _, err := client.FetchManagerPicks(context.Background(), 1178124, 39); err == nil {
		t.Fatal("expected error for out-of-range gameweek")
	}
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		MaxRetries:     -1,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
}
