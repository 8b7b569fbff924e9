package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/transactions"
	"github.com/fluxorio/mtp/pkg/web/middleware/auth"
	"github.com/gorilla/websocket"
)

type fakeStore struct {
	mu     sync.Mutex
	counts map[transactions.Status]int64
}

func (s *fakeStore) CountByStatus(ctx context.Context) (map[transactions.Status]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[transactions.Status]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, nil
}

type fixture struct {
	srv    *Server
	ts     *httptest.Server
	bus    core.EventBus
	tokens *auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := core.NewLogger(core.LoggerConfig{Level: "ERROR", Output: &strings.Builder{}})
	bus := core.NewEventBus(context.Background(), nil, logger)
	tokens := auth.NewTokenService("push-test-secret-with-enough-bytes", "mtp", time.Hour)
	catalog := i18n.NewCatalog(fstest.MapFS{
		"en/global.json": {Data: []byte(`{"global":{"title":"MTP"}}`)},
		"en/transactions-by-status.json": {Data: []byte(
			`{"mtp":{"transactions-by-status":{"home":{"title":"Transactions by status"}}}}`)},
		"fr/global.json": {Data: []byte(`{"global":{"title":"MTP (fr)"}}`)},
	})

	srv := NewServer(Options{
		Bus:          bus,
		Store:        &fakeStore{counts: map[transactions.Status]int64{transactions.StatusNew: 2}},
		Tokens:       tokens,
		Catalog:      catalog,
		Languages:    []string{"en", "fr"},
		Logger:       logger,
		WriteTimeout: time.Second,
		PingInterval: time.Second,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		bus.Close()
	})
	return &fixture{srv: srv, ts: ts, bus: bus, tokens: tokens}
}

func (f *fixture) dial(t *testing.T, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + Path + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func (f *fixture) connect(t *testing.T, login string, roles ...string) *websocket.Conn {
	t.Helper()
	token, err := f.tokens.Issue(&auth.Principal{Login: login, Roles: roles})
	if err != nil {
		t.Fatal(err)
	}
	ws, _, err := f.dial(t, "?access_token="+token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

type frame struct {
	Type     string                `json:"type"`
	State    string                `json:"state"`
	Title    string                `json:"title"`
	Code     string                `json:"code"`
	Snapshot transactions.Snapshot `json:"snapshot"`
}

func send(t *testing.T, ws *websocket.Conn, f ClientFrame) {
	t.Helper()
	if err := ws.WriteJSON(f); err != nil {
		t.Fatal(err)
	}
}

func next(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var fr frame
	if err := json.Unmarshal(data, &fr); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return fr
}

func TestNavigation_SubscribeWhileViewActive(t *testing.T) {
	f := newFixture(t)
	ws := f.connect(t, "admin", transactions.RoleUser, transactions.RoleAdmin)

	send(t, ws, ClientFrame{Type: FrameNavigate, URL: "/"})
	if fr := next(t, ws); fr.Type != FrameNavigated || fr.State != "home" || fr.Title != "MTP" {
		t.Fatalf("home frame = %+v", fr)
	}

	// the enter hook pushes the first snapshot before navigated is written
	send(t, ws, ClientFrame{Type: FrameNavigate, State: transactions.StateName})
	fr := next(t, ws)
	if fr.Type != FrameSnapshot || fr.Snapshot.Counts[transactions.StatusNew] != 2 {
		t.Fatalf("initial snapshot = %+v", fr)
	}
	fr = next(t, ws)
	if fr.Type != FrameNavigated || fr.State != transactions.StateName || fr.Title != "Transactions by status" {
		t.Fatalf("navigated frame = %+v", fr)
	}

	if err := transactions.Publish(f.bus, transactions.Event{ID: "t1", Status: transactions.StatusProcessed}); err != nil {
		t.Fatal(err)
	}
	fr = next(t, ws)
	if fr.Type != FrameSnapshot || fr.Snapshot.Counts[transactions.StatusProcessed] != 1 || fr.Snapshot.Total != 3 {
		t.Fatalf("live snapshot = %+v", fr)
	}

	send(t, ws, ClientFrame{Type: FrameNavigate, State: "home"})
	if fr := next(t, ws); fr.Type != FrameNavigated || fr.State != "home" {
		t.Fatalf("back home = %+v", fr)
	}

	// unsubscribed: the next frame is the error, not a snapshot
	if err := transactions.Publish(f.bus, transactions.Event{ID: "t2", Status: transactions.StatusFailed}); err != nil {
		t.Fatal(err)
	}
	send(t, ws, ClientFrame{Type: FrameNavigate, State: "nowhere"})
	if fr := next(t, ws); fr.Type != FrameError || fr.Code != "STATE_NOT_FOUND" {
		t.Fatalf("unknown state frame = %+v", fr)
	}
}

func TestNavigation_Errors(t *testing.T) {
	f := newFixture(t)
	ws := f.connect(t, "user", transactions.RoleUser)

	send(t, ws, ClientFrame{Type: FrameNavigate, State: transactions.StateName})
	if fr := next(t, ws); fr.Type != FrameError || fr.Code != "FORBIDDEN" {
		t.Errorf("forbidden frame = %+v", fr)
	}
	send(t, ws, ClientFrame{Type: FrameNavigate, State: transactions.EntityStateName})
	if fr := next(t, ws); fr.Type != FrameError || fr.Code != "ABSTRACT_STATE" {
		t.Errorf("abstract frame = %+v", fr)
	}
	send(t, ws, ClientFrame{Type: "subscribe"})
	if fr := next(t, ws); fr.Type != FrameError || fr.Code != "BAD_FRAME" {
		t.Errorf("bad frame = %+v", fr)
	}
	send(t, ws, ClientFrame{Type: FrameNavigate})
	if fr := next(t, ws); fr.Type != FrameError || fr.Code != "BAD_FRAME" {
		t.Errorf("empty navigate = %+v", fr)
	}
}

func TestNavigation_AnonymousAndLanguage(t *testing.T) {
	f := newFixture(t)

	ws, _, err := f.dial(t, "?lang=fr")
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	send(t, ws, ClientFrame{Type: FrameNavigate, URL: "/"})
	if fr := next(t, ws); fr.Type != FrameNavigated || fr.Title != "MTP (fr)" {
		t.Errorf("french home = %+v", fr)
	}
	send(t, ws, ClientFrame{Type: FrameNavigate, URL: "/transactions-by-status"})
	if fr := next(t, ws); fr.Code != "FORBIDDEN" {
		t.Errorf("anonymous view access = %+v", fr)
	}
}

func TestUpgrade_RejectsInvalidToken(t *testing.T) {
	f := newFixture(t)
	_, resp, err := f.dial(t, "?access_token=forged")
	if err == nil {
		t.Fatal("dial with a forged token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %+v", resp)
	}
}

func TestDisconnect_ClosesSession(t *testing.T) {
	f := newFixture(t)
	ws := f.connect(t, "admin", transactions.RoleAdmin)

	send(t, ws, ClientFrame{Type: FrameNavigate, State: transactions.StateName})
	next(t, ws) // snapshot
	next(t, ws) // navigated
	if f.srv.Connections() != 1 {
		t.Fatalf("connections = %d", f.srv.Connections())
	}

	ws.Close()
	deadline := time.Now().Add(5 * time.Second)
	for f.srv.Connections() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not released")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCheckOrigin(t *testing.T) {
	s := &Server{opts: Options{AllowedOrigins: []string{"https://mtp.example.com"}}}
	r := httptest.NewRequest(http.MethodGet, Path, nil)
	r.Header.Set("Origin", "https://evil.example.com")
	if s.checkOrigin(r) {
		t.Error("foreign origin accepted")
	}
	r.Header.Set("Origin", "https://mtp.example.com")
	if !s.checkOrigin(r) {
		t.Error("allowed origin rejected")
	}
}

func TestNewServer_LanguagesDefaultToCatalog(t *testing.T) {
	bus := core.NewEventBus(context.Background(), nil, nil)
	defer bus.Close()
	opts := Options{
		Bus:    bus,
		Store:  &fakeStore{},
		Tokens: auth.NewTokenService("push-test-secret-with-enough-bytes", "mtp", time.Hour),
		Logger: core.NewLogger(core.LoggerConfig{Level: "ERROR", Output: &strings.Builder{}}),
	}

	opts.Catalog = i18n.NewCatalog(fstest.MapFS{
		"fr/global.json": {Data: []byte(`{}`)},
		"en/global.json": {Data: []byte(`{}`)},
	})
	if got := NewServer(opts).opts.Languages; len(got) != 2 || got[0] != "en" || got[1] != "fr" {
		t.Errorf("languages = %v, want [en fr]", got)
	}

	opts.Catalog = i18n.NewCatalog(fstest.MapFS{})
	if got := NewServer(opts).opts.Languages; len(got) != 1 || got[0] != "en" {
		t.Errorf("languages for empty catalog = %v, want [en]", got)
	}
}
