package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/cenkalti/backoff/v5"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrDeadEnd is returned when an article has no usable outgoing links
var ErrDeadEnd = errors.New("article has no usable links")

const randomPage = "Special:Random"

// Crawler fetches article pages and resolves their outgoing article links.
// It is not safe for concurrent use; one search drives it at a time.
type Crawler struct {
	baseURL         string
	collector       *colly.Collector
	randomCollector *colly.Collector
	limiter         *rate.Limiter
	retry           RetryPolicy
	landedOn        *url.URL
	metricsCallback func(pagesFetched, pagesFailed int, elapsed time.Duration)
}

// NewCrawler creates a new crawler instance
func NewCrawler(cfg *config.Config, metricsCallback func(int, int, time.Duration)) *Crawler {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if limit <= 0 {
		limit = rate.Inf
	}

	c := &Crawler{
		baseURL:   cfg.BaseURL,
		collector: newCollector(cfg),
		limiter:   rate.NewLimiter(limit, 1),
		retry: RetryPolicy{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: cfg.RetryDelay(),
			MaxDelay:     cfg.RetryMaxDelay(),
		},
		metricsCallback: metricsCallback,
	}

	c.setupRandom(cfg)
	return c
}

// newCollector configures a synchronous Colly collector
func newCollector(cfg *config.Config) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(), // failed pages are fetched again on retry
		colly.MaxDepth(0),
	)

	collector.SetRequestTimeout(cfg.RequestTimeout())
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	})
	return collector
}

// setupRandom prepares the collector that follows the random page redirect
func (c *Crawler) setupRandom(cfg *config.Config) {
	c.randomCollector = newCollector(cfg)

	c.randomCollector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		c.landedOn = req.URL
		return nil
	})

	c.randomCollector.OnResponse(func(r *colly.Response) {
		if c.landedOn == nil {
			c.landedOn = r.Request.URL
		}
	})
}

// FetchNeighbors returns the ordered, deduplicated article links of title.
// Transient failures are retried with the crawler's retry policy; pages
// without usable links return ErrDeadEnd.
func (c *Crawler) FetchNeighbors(ctx context.Context, title string) ([]string, error) {
	return retry(ctx, c.retry, "fetch "+title, func() ([]string, error) {
		links, err := c.fetchLinks(ctx, title)
		if errors.Is(err, ErrDeadEnd) {
			return nil, backoff.Permanent(err)
		}
		return links, err
	})
}

// fetchLinks performs a single page fetch
func (c *Crawler) fetchLinks(ctx context.Context, title string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	collector := c.collector.Clone()

	var (
		hrefs      []string
		hasContent bool
		status     int
	)

	// Extract links from the article body only
	collector.OnHTML("#mw-content-text", func(e *colly.HTMLElement) {
		hasContent = true
		e.DOM.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			if s.ParentsUntilSelection(e.DOM).Filter(excludedAncestors).Length() > 0 {
				return
			}
			href, _ := s.Attr("href")
			hrefs = append(hrefs, href)
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	target := articleURL(c.baseURL, title)
	start := time.Now()
	err := collector.Visit(target)
	elapsed := time.Since(start)

	if err != nil {
		c.report(0, 1, elapsed)
		if isPermanentStatus(status) {
			logrus.Warnf("Page %s returned status %d, treating as dead end", target, status)
			return nil, fmt.Errorf("%s returned status %d: %w", target, status, ErrDeadEnd)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}

	c.report(1, 0, elapsed)
	logrus.Debugf("Fetched %s in %v", target, elapsed.Round(time.Millisecond))

	if !hasContent {
		logrus.Warnf("No article content in %s", target)
		return nil, ErrDeadEnd
	}

	links := FilterLinks(hrefs)
	if len(links) == 0 {
		logrus.Warnf("No links found in %s", target)
		return nil, ErrDeadEnd
	}

	return links, nil
}

// RandomTitle returns the title of a random article, retrying until the
// random page lands on an article
func (c *Crawler) RandomTitle(ctx context.Context) (string, error) {
	return retry(ctx, c.retry, "random title", func() (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		c.landedOn = nil
		start := time.Now()
		err := c.randomCollector.Visit(articleURL(c.baseURL, randomPage))
		elapsed := time.Since(start)
		if err != nil {
			c.report(0, 1, elapsed)
			return "", fmt.Errorf("failed to fetch random page: %w", err)
		}
		c.report(1, 0, elapsed)

		title, ok := TitleFromURL(c.landedOn)
		if !ok {
			return "", fmt.Errorf("random page landed on %v, not an article", c.landedOn)
		}
		return title, nil
	})
}

func (c *Crawler) report(fetched, failed int, elapsed time.Duration) {
	if c.metricsCallback != nil {
		c.metricsCallback(fetched, failed, elapsed)
	}
}

// isPermanentStatus reports whether an HTTP status means the page will
// never have links, as opposed to a failure worth retrying
func isPermanentStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return false
	case status >= 400 && status < 500:
		return true
	default:
		return false
	}
}
