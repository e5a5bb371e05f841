package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// ErrNoFeed is returned when no RSS or Atom feed can be found for a site
var ErrNoFeed = errors.New("no feed found")

// fallbackFeedPaths are tried when the home page advertises no feed
var fallbackFeedPaths = []string{"/rss.xml", "/atom.xml", "/feed", "/index.xml"}

// Article is the newest entry of a site's feed
type Article struct {
	Title     string
	URL       string
	Published *time.Time
}

// LatestArticle finds the site's feed and returns its newest item
func (c *Checker) LatestArticle(ctx context.Context, site string) (Article, error) {
	candidates := c.feedCandidates(ctx, site)

	var lastErr error
	for _, feedURL := range candidates {
		if ctx.Err() != nil {
			return Article{}, ctx.Err()
		}
		feed, err := c.fetchFeed(ctx, feedURL)
		if err != nil {
			lastErr = err
			continue
		}
		if a, ok := newest(feed); ok {
			return a, nil
		}
	}

	if lastErr != nil {
		return Article{}, fmt.Errorf("%w for %s: %v", ErrNoFeed, site, lastErr)
	}
	return Article{}, fmt.Errorf("%w for %s", ErrNoFeed, site)
}

// feedCandidates lists advertised feeds first, then the conventional paths
func (c *Checker) feedCandidates(ctx context.Context, site string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	if doc, final, err := c.Document(ctx, site); err == nil {
		for _, u := range discoverFeeds(doc, final) {
			add(u)
		}
	}
	base := strings.TrimSuffix(site, "/")
	for _, p := range fallbackFeedPaths {
		add(base + p)
	}
	return out
}

func discoverFeeds(doc *goquery.Document, base *url.URL) []string {
	var out []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		typ = strings.ToLower(typ)
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") && !strings.Contains(typ, "feed+json") {
			return
		}
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		out = append(out, ref.String())
	})
	return out
}

func (c *Checker) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	resp, err := c.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, feedURL)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// newest picks the item with the latest publish (or update) time. Undated
// feeds yield their first item.
func newest(feed *gofeed.Feed) (Article, bool) {
	if feed == nil || len(feed.Items) == 0 {
		return Article{}, false
	}

	best := feed.Items[0]
	bestTime := itemTime(best)
	for _, item := range feed.Items[1:] {
		t := itemTime(item)
		if t != nil && (bestTime == nil || t.After(*bestTime)) {
			best, bestTime = item, t
		}
	}

	return Article{
		Title:     strings.TrimSpace(best.Title),
		URL:       best.Link,
		Published: bestTime,
	}, true
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}
