package yahoo

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/ratelimit"
)

// DefaultListingURL is the public ETF screener page.
const DefaultListingURL = "https://finance.yahoo.com"

// minListingColumns filters out layout rows that are not ETF entries.
const minListingColumns = 6

// Lister scrapes ETF symbols from the listing page.
type Lister struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewLister creates a Lister for baseURL (DefaultListingURL when empty).
func NewLister(baseURL string, httpOpts fetcher.Options, limiter *ratelimit.Limiter) *Lister {
	if baseURL == "" {
		baseURL = DefaultListingURL
	}
	client := fetcher.NewHTTPClient(baseURL, httpOpts).
		SetHeader("Accept", "text/html")
	return &Lister{client: client, limiter: limiter}
}

// ListETFs returns up to limit symbols in page order. A limit of zero or
// less returns every row on the page.
func (l *Lister) ListETFs(ctx context.Context, limit int) ([]string, error) {
	if err := l.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return nil, err
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"count":  "100",
			"offset": "0",
		}).
		Get("/etfs")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return nil, fmt.Errorf("fetch ETF listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(resp.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parse ETF listing: %w", err)
	}

	return parseListing(doc, limit), nil
}

func parseListing(doc *goquery.Document, limit int) []string {
	var symbols []string
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < minListingColumns {
			return true
		}
		symbol := strings.TrimSpace(cells.First().Text())
		if symbol == "" {
			return true
		}
		symbols = append(symbols, symbol)
		return limit <= 0 || len(symbols) < limit
	})
	return symbols
}
