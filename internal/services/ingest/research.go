package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
)

// Fetcher downloads a web page and reduces it to a title plus markdown
// body text suitable for chunking.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int
	logger      arbor.ILogger
}

// NewFetcher creates a research page fetcher.
func NewFetcher(cfg *common.ResearchConfig, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: cfg.RequestTimeout.Std()},
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger,
	}
}

// Fetch downloads a URL and returns its title and markdown content.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (title, content string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("invalid url %s: %w", targetURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch %s returned status %d", targetURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		return "", "", fmt.Errorf("unsupported content type %s for %s", contentType, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBodySize)))
	if err != nil {
		return "", "", fmt.Errorf("failed to read body of %s: %w", targetURL, err)
	}

	if strings.Contains(contentType, "text/plain") {
		return targetURL, string(body), nil
	}

	return f.extract(targetURL, string(body))
}

// extract pulls the page title and converts the main content to markdown,
// dropping navigation, scripts, and styling.
func (f *Fetcher) extract(targetURL, html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse html from %s: %w", targetURL, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = targetURL
	}

	doc.Find("script, style, nav, header, footer, iframe, noscript").Remove()

	container := doc.Find("main, article").First()
	if container.Length() == 0 {
		container = doc.Find("body")
	}

	fragment, err := container.Html()
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize content of %s: %w", targetURL, err)
	}

	mdConverter := md.NewConverter(targetURL, true, nil)
	content, err := mdConverter.ConvertString(fragment)
	if err != nil {
		return "", "", fmt.Errorf("failed to convert %s to markdown: %w", targetURL, err)
	}

	f.logger.Debug().
		Str("url", targetURL).
		Str("title", title).
		Int("content_length", len(content)).
		Msg("Fetched research page")

	return title, strings.TrimSpace(content), nil
}
