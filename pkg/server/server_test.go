package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ameling/kinship/pkg/bus"
	"github.com/ameling/kinship/pkg/config"
	"github.com/ameling/kinship/pkg/relationship"
	"github.com/ameling/kinship/pkg/store"
)

func newTestServer(tb testing.TB, cfg *config.Config) (*Server, *bus.NotificationBus) {
	tb.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(tb.TempDir(), "kinship.db"))
	if err != nil {
		tb.Fatalf("NewSQLiteStore failed: %v", err)
	}
	tb.Cleanup(func() { _ = st.Close() })

	eng, err := relationship.New(cfg, st)
	if err != nil {
		tb.Fatalf("New engine failed: %v", err)
	}

	nb := bus.NewNotificationBus()
	tb.Cleanup(nb.Close)
	return New(eng, nb, "test", st.Ping), nb
}

func postJSON(tb testing.TB, srv http.Handler, path string, body any) *httptest.ResponseRecorder {
	tb.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		tb.Fatalf("marshal request failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestPostInteraction(t *testing.T) {
	t.Parallel()

	srv, nb := newTestServer(t, config.DefaultConfig())

	rec := postJSON(t, srv, "/api/pairs/u1/c1/interactions", map[string]any{
		"kind": "message",
		"at":   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var resp struct {
		State         relationship.State          `json:"state"`
		Notifications []relationship.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.State.Counters.Messages != 1 {
		t.Errorf("message counter = %d, want 1", resp.State.Counters.Messages)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Type != relationship.NotifyAchievement {
		t.Errorf("notifications = %v, want the first_words unlock", resp.Notifications)
	}

	// The unlock also reached the bus.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, ok := nb.Consume(ctx)
	if !ok || n.Type != relationship.NotifyAchievement {
		t.Errorf("bus notification = %v (ok=%v), want achievement unlock", n, ok)
	}
}

func TestPostInteractionRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, config.DefaultConfig())

	cases := []struct {
		name string
		body any
		want int
	}{
		{"missing timestamp", map[string]any{"kind": "message"}, http.StatusBadRequest},
		{"unknown kind", map[string]any{"kind": "teleport", "at": time.Now()}, http.StatusBadRequest},
		{"gift without id", map[string]any{"kind": "gift", "at": time.Now()}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(t, srv, "/api/pairs/u1/c1/interactions", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestGetStateUnknownPair(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/pairs/ghost/nobody/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404; body %s", rec.Code, rec.Body)
	}
}

func TestPostInteractionWithoutAutoCreate(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Engine.AutoCreatePairs = false
	srv, _ := newTestServer(t, cfg)

	rec := postJSON(t, srv, "/api/pairs/u1/c1/interactions", map[string]any{
		"kind": "message",
		"at":   time.Now(),
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404; body %s", rec.Code, rec.Body)
	}
}

func TestGetStateAfterInteractions(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, config.DefaultConfig())
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := postJSON(t, srv, "/api/pairs/u1/c1/interactions", map[string]any{
			"kind": "message",
			"at":   at.Add(time.Duration(i) * time.Minute),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("interaction %d status = %d; body %s", i, rec.Code, rec.Body)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/pairs/u1/c1/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var st relationship.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state failed: %v", err)
	}
	if st.Counters.Messages != 3 {
		t.Errorf("message counter = %d, want 3", st.Counters.Messages)
	}
}

func TestListAchievements(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/achievements", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Achievements []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"achievements"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if len(resp.Achievements) != len(relationship.DefaultAchievements()) {
		t.Errorf("achievements = %d, want the full registry", len(resp.Achievements))
	}
	for i := 1; i < len(resp.Achievements); i++ {
		if resp.Achievements[i-1].ID >= resp.Achievements[i].ID {
			t.Errorf("achievements not in id order at %d: %s >= %s", i, resp.Achievements[i-1].ID, resp.Achievements[i].ID)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
	if resp["storage"] != true {
		t.Errorf("storage field = %v, want true", resp["storage"])
	}
}
