// Package scraper crawls a documentation site and produces raw pages for
// ingestion.
package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/pkg/logging"
	"golang.org/x/time/rate"
)

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int
	MaxPages          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	UserAgent         string
	OnProgress        func(url string)
	Logger            *slog.Logger
}

type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
}

var contentSelectors = []string{
	"main",
	"article",
	".content",
	".main-content",
	".documentation",
	".docs-content",
	`div[role="main"]`,
}

var noisePatterns = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 2
	}
	if config.MaxPages == 0 {
		config.MaxPages = 200
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}
	if config.UserAgent == "" {
		config.UserAgent = "support-copilot-crawler/1.0"
	}
	config.Logger = logging.OrDefault(config.Logger)

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid base URL", goerr.V("base_url", config.BaseURL))
	}
	if parsedURL.Host == "" {
		return nil, goerr.New("base URL must be absolute", goerr.V("base_url", config.BaseURL))
	}

	return &Scraper{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

type queued struct {
	url   string
	depth int
}

// Scrape crawls breadth-first from the seed URLs (the base URL when none are
// given). Pages that fail are logged and skipped; an error is returned only
// when the context ends or nothing could be fetched.
func (s *Scraper) Scrape(ctx context.Context, seeds ...string) ([]models.Document, error) {
	if len(seeds) == 0 {
		seeds = []string{s.config.BaseURL}
	}

	visited := make(map[string]bool)
	var queue []queued
	for _, seed := range seeds {
		queue = append(queue, queued{url: normalize(seed), depth: 0})
	}

	var (
		documents []models.Document
		firstErr  error
	)
	for len(queue) > 0 && len(documents) < s.config.MaxPages {
		next := queue[0]
		queue = queue[1:]

		if next.depth > s.config.MaxDepth || visited[next.url] || !s.shouldProcessURL(next.url) {
			continue
		}
		visited[next.url] = true

		if err := s.limiter.Wait(ctx); err != nil {
			return documents, goerr.Wrap(err, "crawl interrupted")
		}
		if s.config.OnProgress != nil {
			s.config.OnProgress(next.url)
		}

		doc, links, err := s.fetch(ctx, next.url, next.depth)
		if err != nil {
			if ctx.Err() != nil {
				return documents, goerr.Wrap(ctx.Err(), "crawl interrupted")
			}
			s.config.Logger.Warn("failed to crawl page", "url", next.url, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		documents = append(documents, doc)

		for _, link := range links {
			if !visited[link] {
				queue = append(queue, queued{url: link, depth: next.depth + 1})
			}
		}
	}

	if len(documents) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return documents, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string, depth int) (models.Document, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.Document{}, nil, goerr.Wrap(err, "failed to build request", goerr.V("url", pageURL))
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Document{}, nil, goerr.Wrap(err, "request failed", goerr.V("url", pageURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Document{}, nil, goerr.New("unexpected status code",
			goerr.V("url", pageURL), goerr.V("status", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.Document{}, nil, goerr.Wrap(err, "failed to parse HTML", goerr.V("url", pageURL))
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Untitled"
	}
	links := s.extractLinks(doc, pageURL)

	document := models.Document{
		URL:     pageURL,
		Title:   title,
		Content: s.extractMainContent(doc),
		Metadata: map[string]interface{}{
			"depth":         depth,
			"crawled_at":    time.Now().UTC().Format(time.RFC3339),
			"content_type":  resp.Header.Get("Content-Type"),
			"last_modified": resp.Header.Get("Last-Modified"),
		},
	}
	return document, links, nil
}

func (s *Scraper) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if parsedURL.Host != s.baseHost {
		return false
	}

	path := strings.ToLower(parsedURL.Path)
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		if allowedExt == "" {
			// extensionless paths like /sdks/python
			if !strings.Contains(path[strings.LastIndex(path, "/")+1:], ".") {
				validExt = true
				break
			}
			continue
		}
		if strings.HasSuffix(path, allowedExt) {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

func (s *Scraper) extractLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			s.config.Logger.Debug("skipping unparsable link", "href", href, "page", pageURL)
			return
		}
		link := normalize(base.ResolveReference(ref).String())
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links
}

func (s *Scraper) extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var content string
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector).First(); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if strings.TrimSpace(content) == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}
	return strings.TrimSpace(content)
}

// normalize drops fragments so /page#a and /page#b are one page.
func normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}
