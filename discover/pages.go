package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-shelf/config"
	"github.com/aluiziolira/go-scrape-shelf/models"
	"github.com/gocolly/colly/v2"
)

// itemSelector matches the product links on a collection listing page.
const itemSelector = `a[data-testid="product-title"]`

// PageScanner walks the HTML listing view page by page (1-indexed) and
// stops at the first page with no item elements. The collector runs
// synchronously so each page's items are gathered before the next
// request is issued, preserving encounter order.
type PageScanner struct {
	cfg       *config.Config
	collector *colly.Collector
	seen      *seenCache

	// items found on the page currently being visited
	page []models.ItemRef
}

// NewPageScanner builds the page-scan strategy.
func NewPageScanner(cfg *config.Config) (*PageScanner, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true

	s := &PageScanner{
		cfg:       cfg,
		collector: collector,
		seen:      newSeenCache(),
	}

	collector.OnHTML(itemSelector, func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if href == "" {
			return
		}
		s.page = append(s.page, models.ItemRef{
			ID:    idFromPath(href),
			URL:   href,
			Title: strings.TrimSpace(e.Text),
		})
	})

	return s, nil
}

// WithTransport swaps the collector's transport, used by tests.
func (s *PageScanner) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
}

// Discover requests listing pages until one yields zero items. A page
// request failure terminates discovery early; the references gathered
// so far are returned with the error.
func (s *PageScanner) Discover(ctx context.Context) ([]models.ItemRef, error) {
	var refs []models.ItemRef

	for page := 1; page <= s.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		s.page = s.page[:0]
		pageURL := fmt.Sprintf("%s/%s/collection?universe=%s&page=%d",
			strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Username, s.cfg.Universe, page)

		if err := s.collector.Visit(pageURL); err != nil {
			return refs, fmt.Errorf("page %d: %w", page, err)
		}
		if len(s.page) == 0 {
			break
		}

		for _, ref := range s.page {
			if !s.seen.admit(refKey(ref)) {
				slog.Debug("duplicate reference dropped", slog.String("url", ref.URL))
				continue
			}
			refs = append(refs, ref)
		}
		slog.Debug("listing page",
			slog.Int("page", page),
			slog.Int("items", len(s.page)),
		)
	}

	return refs, nil
}
