// Package universe resolves the ticker universe to screen: a well-known index
// scraped from its Wikipedia constituents table, or an explicit custom list.
package universe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	IndexNasdaq100 = "nasdaq100"
	IndexSP500     = "sp500"
	IndexCustom    = "custom"
)

var indexPages = map[string]struct {
	url string
	col int // ticker column within the constituents table
}{
	IndexNasdaq100: {"https://en.wikipedia.org/wiki/Nasdaq-100", 1},
	IndexSP500:     {"https://en.wikipedia.org/wiki/List_of_S%26P_500_companies", 0},
}

// Resolver fetches index constituent lists.
type Resolver struct {
	Client *http.Client
}

// NewResolver creates a Resolver with optional proxy support.
func NewResolver(proxyURL string) *Resolver {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Resolver{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// Resolve returns the tickers for the configured universe. A custom list is
// normalized and returned as-is; index scrape failures are errors.
func (r *Resolver) Resolve(ctx context.Context, index string, custom []string) ([]string, error) {
	switch strings.ToLower(index) {
	case IndexCustom, "":
		if len(custom) == 0 {
			return nil, fmt.Errorf("custom universe selected but no tickers configured")
		}
		out := make([]string, 0, len(custom))
		for _, t := range custom {
			if s := NormalizeSymbol(t); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		page, ok := indexPages[strings.ToLower(index)]
		if !ok {
			return nil, fmt.Errorf("unknown universe %q", index)
		}
		return r.scrape(ctx, page.url, page.col)
	}
}

func (r *Resolver) scrape(ctx context.Context, pageURL string, col int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch constituents: status %d", resp.StatusCode)
	}

	tickers, err := ParseConstituents(resp.Body, col)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers found at %s", pageURL)
	}
	return tickers, nil
}

// ParseConstituents extracts ticker symbols from the given column of the
// page's constituents table.
func ParseConstituents(body io.Reader, col int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}

	seen := make(map[string]bool)
	var tickers []string
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= col {
			return // header or malformed row
		}
		sym := NormalizeSymbol(cells.Eq(col).Text())
		if sym == "" || seen[sym] {
			return
		}
		seen[sym] = true
		tickers = append(tickers, sym)
	})
	return tickers, nil
}

// NormalizeSymbol maps exchange-style class shares (BRK.B) to the dashed form
// the data providers expect (BRK-B).
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ".", "-")
}
