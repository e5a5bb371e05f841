package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stone-age-io/links-health-monitor/internal/links"
)

// ErrUnexpectedStatus is returned when a page answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status")

// Checker runs the HTTP checks of a health pass
type Checker struct {
	client    *http.Client
	userAgent string
}

// New creates a checker whose requests time out after timeout
func New(timeout time.Duration, userAgent string) *Checker {
	return NewWithClient(&http.Client{Timeout: timeout}, userAgent)
}

// NewWithClient creates a checker on a caller supplied client
func NewWithClient(client *http.Client, userAgent string) *Checker {
	return &Checker{client: client, userAgent: userAgent}
}

func (c *Checker) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.client.Do(req)
}

// Accessible reports whether rawURL answers GET with 200 and how long it took
func (c *Checker) Accessible(ctx context.Context, rawURL string) (bool, time.Duration) {
	start := time.Now()
	resp, err := c.get(ctx, rawURL)
	elapsed := time.Since(start)
	if err != nil {
		return false, elapsed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode == http.StatusOK, elapsed
}

// Document fetches and parses an HTML page. The returned URL is the final
// location after redirects and is used to resolve relative links.
func (c *Checker) Document(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return doc, resp.Request.URL, nil
}

// Title returns the trimmed <title> of the page at rawURL
func (c *Checker) Title(ctx context.Context, rawURL string) (string, error) {
	doc, _, err := c.Document(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

// DisplayNameChanged reports whether title no longer mentions displayName
func DisplayNameChanged(title, displayName string) bool {
	return !strings.Contains(title, displayName)
}

// FriendLinkPage returns the friend page of the site at base. An explicit
// page (from link annotations) wins when it is reachable; otherwise base+route
// is tried for each route in order.
func (c *Checker) FriendLinkPage(ctx context.Context, base, explicit string, routes []string) (string, bool) {
	if explicit != "" {
		if ok, _ := c.Accessible(ctx, explicit); ok {
			return explicit, true
		}
	}

	for _, route := range routes {
		if ctx.Err() != nil {
			return "", false
		}
		page := base + route
		if ok, _ := c.Accessible(ctx, page); ok {
			return page, true
		}
	}
	return "", false
}

// ContainsLink reports whether the page links back to ourURL through an
// anchor or a submit input
func (c *Checker) ContainsLink(ctx context.Context, page, ourURL string) bool {
	doc, final, err := c.Document(ctx, page)
	if err != nil {
		return false
	}
	return containsLink(doc, final, links.NormalizeURL(ourURL))
}

func containsLink(doc *goquery.Document, base *url.URL, ours string) bool {
	if ours == "" {
		return false
	}

	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := ref.String()
		if base != nil {
			abs = base.ResolveReference(ref).String()
		}
		if links.NormalizeURL(abs) == ours {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	doc.Find("input[type=submit]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("value"); links.NormalizeURL(strings.TrimSpace(v)) == ours {
			found = true
			return false
		}
		return true
	})
	return found
}
