package requestsxml

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
)

func fixtureServer(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	feed, err := os.ReadFile("testdata/nasa.rss")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	var lastUserAgent string
	r := chi.NewRouter()
	r.Get("/feed.rss", func(w http.ResponseWriter, req *http.Request) {
		lastUserAgent = req.UserAgent()
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write(feed)
	})
	r.Get("/cookie", func(w http.ResponseWriter, req *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123", Path: "/"})
		w.Write([]byte("<ok/>"))
	})
	r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
		if c, err := req.Cookie("sid"); err == nil {
			w.Write([]byte("<session>" + c.Value + "</session>"))
			return
		}
		w.Write([]byte("<session/>"))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &lastUserAgent
}

func TestSessionGet(t *testing.T) {
	srv, _ := fixtureServer(t)
	s := NewSession()

	resp, err := s.Get(context.Background(), srv.URL+"/feed.rss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(resp.Content()) == 0 {
		t.Fatal("expected non-empty body")
	}

	links, err := resp.XML().Links()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 7 {
		t.Errorf("expected 7 links, got %d", len(links))
	}
}

func TestSessionMocksBrowserUserAgent(t *testing.T) {
	srv, ua := fixtureServer(t)
	s := NewSession()

	if _, err := s.Get(context.Background(), srv.URL+"/feed.rss"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *ua != DefaultUserAgent {
		t.Errorf("expected mocked browser agent, got %q", *ua)
	}

	s.SetUserAgent("feedbot/1.0")
	if _, err := s.Get(context.Background(), srv.URL+"/feed.rss"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *ua != "feedbot/1.0" {
		t.Errorf("expected overridden agent, got %q", *ua)
	}
}

func TestSessionCookiePersistence(t *testing.T) {
	srv, _ := fixtureServer(t)
	s := NewSession()
	ctx := context.Background()

	if _, err := s.Get(ctx, srv.URL+"/cookie"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := s.Get(ctx, srv.URL+"/whoami")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session, err := resp.XML().XPathFirst("/session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session == nil {
		t.Fatal("expected session element")
	}
	if got := session.Text(); got != "abc123" {
		t.Errorf("expected cookie to persist across requests, got session %q", got)
	}
}

func TestResponseXMLIsCached(t *testing.T) {
	srv, _ := fixtureServer(t)
	s := NewSession()

	resp, err := s.Get(context.Background(), srv.URL+"/feed.rss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.XML() != resp.XML() {
		t.Error("expected the same Document on repeated access")
	}
}

func TestSessionNetworkErrorPropagates(t *testing.T) {
	s := NewSession()
	if _, err := s.Get(context.Background(), "http://127.0.0.1:0/nope"); err == nil {
		t.Fatal("expected connection error")
	}
}
