package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const ourSite = "https://blog.example.com"

// newSite serves a small friend site
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title> Alice's Blog </title>
<link rel="alternate" type="application/rss+xml" href="/rss.xml"></head><body>hi</body></html>`)
	})
	mux.HandleFunc("/friends", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><a href="https://other.example.com">other</a>
<a href="%s/">us</a></body></html>`, ourSite)
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><form><input type="submit" value="%s"></form></body></html>`, ourSite)
	})
	mux.HandleFunc("/relative", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/self">self</a></body></html>`)
	})
	mux.HandleFunc("/nolink", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="https://other.example.com">other</a></body></html>`)
	})
	mux.HandleFunc("/rss.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Alice</title>
<item><title>Older</title><link>https://alice.example.com/older</link><pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate></item>
<item><title>Newest</title><link>https://alice.example.com/newest</link><pubDate>Wed, 05 Jun 2024 10:00:00 +0000</pubDate></item>
</channel></rss>`)
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != "checker/1.0" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/created", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newChecker() *Checker {
	return New(5*time.Second, "checker/1.0")
}

// TestAccessible tests that only 200 counts as accessible
func TestAccessible(t *testing.T) {
	srv := newSite(t)
	c := newChecker()

	tests := []struct {
		path string
		want bool
	}{
		{path: "/", want: true},
		{path: "/ua", want: true},
		{path: "/created", want: false},
		{path: "/missing", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ok, elapsed := c.Accessible(context.Background(), srv.URL+tt.path)
			if ok != tt.want {
				t.Errorf("Accessible(%s) = %v, want %v", tt.path, ok, tt.want)
			}
			if elapsed < 0 {
				t.Errorf("elapsed = %v, want non-negative", elapsed)
			}
		})
	}

	if ok, _ := c.Accessible(context.Background(), "http://127.0.0.1:1/unreachable"); ok {
		t.Error("Accessible(unreachable) = true")
	}
	if ok, _ := c.Accessible(context.Background(), "://bad"); ok {
		t.Error("Accessible(bad url) = true")
	}
}

// TestTitle tests title extraction and display name comparison
func TestTitle(t *testing.T) {
	srv := newSite(t)
	c := newChecker()

	title, err := c.Title(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Title() error = %v", err)
	}
	if title != "Alice's Blog" {
		t.Errorf("Title() = %q, want %q", title, "Alice's Blog")
	}

	if DisplayNameChanged(title, "Alice") {
		t.Error("DisplayNameChanged() = true for a title containing the name")
	}
	if !DisplayNameChanged(title, "Bob") {
		t.Error("DisplayNameChanged() = false for a title without the name")
	}

	if _, err := c.Title(context.Background(), srv.URL+"/missing"); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("Title(missing) error = %v, want ErrUnexpectedStatus", err)
	}
}

// TestFriendLinkPage tests route probing and the explicit page override
func TestFriendLinkPage(t *testing.T) {
	srv := newSite(t)
	c := newChecker()
	ctx := context.Background()

	page, ok := c.FriendLinkPage(ctx, srv.URL, "", []string{"/links", "/link", "/friends", "/friend"})
	if !ok || page != srv.URL+"/friends" {
		t.Errorf("FriendLinkPage() = %q, %v, want %s/friends", page, ok, srv.URL)
	}

	page, ok = c.FriendLinkPage(ctx, srv.URL, srv.URL+"/submit", []string{"/friends"})
	if !ok || page != srv.URL+"/submit" {
		t.Errorf("FriendLinkPage() with explicit page = %q, %v", page, ok)
	}

	page, ok = c.FriendLinkPage(ctx, srv.URL, srv.URL+"/missing", []string{"/friends"})
	if !ok || page != srv.URL+"/friends" {
		t.Errorf("FriendLinkPage() with dead explicit page = %q, %v, want route fallback", page, ok)
	}

	if _, ok := c.FriendLinkPage(ctx, srv.URL, "", []string{"/links"}); ok {
		t.Error("FriendLinkPage() found a page that does not exist")
	}
}

// TestContainsLink tests back-link detection
func TestContainsLink(t *testing.T) {
	srv := newSite(t)
	c := newChecker()

	tests := []struct {
		name string
		page string
		ours string
		want bool
	}{
		{name: "anchor with trailing slash", page: "/friends", ours: ourSite, want: true},
		{name: "submit input", page: "/submit", ours: ourSite, want: true},
		{name: "relative href resolved", page: "/relative", ours: srv.URL + "/self", want: true},
		{name: "absent", page: "/nolink", ours: ourSite, want: false},
		{name: "unreachable page", page: "/missing", ours: ourSite, want: false},
		{name: "empty our url", page: "/friends", ours: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ContainsLink(context.Background(), srv.URL+tt.page, tt.ours); got != tt.want {
				t.Errorf("ContainsLink() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLatestArticle tests feed discovery and newest item selection
func TestLatestArticle(t *testing.T) {
	srv := newSite(t)
	c := newChecker()

	a, err := c.LatestArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("LatestArticle() error = %v", err)
	}
	if a.Title != "Newest" || a.URL != "https://alice.example.com/newest" {
		t.Errorf("LatestArticle() = %+v", a)
	}
	if a.Published == nil || a.Published.Month() != time.June {
		t.Errorf("Published = %v, want June 2024", a.Published)
	}
}

// TestLatestArticleFallback tests the conventional feed paths
func TestLatestArticleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><head><title>No feed link</title></head></html>`)
		case "/atom.xml":
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>B</title>
<entry><title>Atom Post</title><link href="https://b.example.com/post"/><updated>2024-03-01T00:00:00Z</updated></entry>
</feed>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a, err := newChecker().LatestArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("LatestArticle() error = %v", err)
	}
	if a.Title != "Atom Post" || a.URL != "https://b.example.com/post" {
		t.Errorf("LatestArticle() = %+v", a)
	}
}

// TestLatestArticleNoFeed tests the error when a site has no feed
func TestLatestArticleNoFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			fmt.Fprint(w, "<html></html>")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newChecker().LatestArticle(context.Background(), srv.URL)
	if !errors.Is(err, ErrNoFeed) {
		t.Errorf("LatestArticle() error = %v, want ErrNoFeed", err)
	}
	if err != nil && !strings.Contains(err.Error(), srv.URL) {
		t.Errorf("error %q does not name the site", err)
	}
}

// TestNewWithClientTLS tests a checker on a client that trusts the test certificate
func TestNewWithClientTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "tls-test" {
			t.Errorf("User-Agent = %q, want tls-test", got)
		}
		fmt.Fprint(w, "<html><head><title>Secure</title></head></html>")
	}))
	defer srv.Close()

	tests := []struct {
		name string
		c    *Checker
		want bool
	}{
		{name: "trusted client", c: NewWithClient(srv.Client(), "tls-test"), want: true},
		{name: "default client", c: New(time.Second, "tls-test"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := tt.c.Accessible(context.Background(), srv.URL)
			if ok != tt.want {
				t.Errorf("Accessible() = %v, want %v", ok, tt.want)
			}
		})
	}
}
