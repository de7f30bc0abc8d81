package alphavantage

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"resty.dev/v3"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/ratelimit"
	"stockfetch/internal/stock"
)

// DefaultBaseURL is the AlphaVantage query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co/query"

// throttled carries the informational bodies AlphaVantage returns with a
// 200 status when the caller is over quota or the symbol is unknown.
type throttled struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// OverviewResponse represents the AlphaVantage OVERVIEW response. Numbers
// are strings and missing values are "None".
type OverviewResponse struct {
	throttled
	Symbol            string `json:"Symbol"`
	Name              string `json:"Name"`
	Description       string `json:"Description"`
	Sector            string `json:"Sector"`
	Industry          string `json:"Industry"`
	BookValue         string `json:"BookValue"`
	EPS               string `json:"EPS"`
	DividendPerShare  string `json:"DividendPerShare"`
	DividendYield     string `json:"DividendYield"`
	ReturnOnEquityTTM string `json:"ReturnOnEquityTTM"`
	RevenueTTM        string `json:"RevenueTTM"`
	EBITDA            string `json:"EBITDA"`
}

// GlobalQuoteResponse represents the AlphaVantage API response for stock quotes
type GlobalQuoteResponse struct {
	throttled
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// OverviewFetcher builds stock profiles from AlphaVantage
type OverviewFetcher struct {
	apiKey         string
	client         *resty.Client
	limiter        *ratelimit.Limiter
	requiredReturn float64
}

// NewOverviewFetcher creates a new profile fetcher
func NewOverviewFetcher(apiKey, baseURL string, httpOpts fetcher.Options, limiter *ratelimit.Limiter) *OverviewFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OverviewFetcher{
		apiKey:  apiKey,
		client:  fetcher.NewHTTPClient(baseURL, httpOpts),
		limiter: limiter,
	}
}

// WithRequiredReturn sets the discount rate used for the valuation.
func (f *OverviewFetcher) WithRequiredReturn(r float64) *OverviewFetcher {
	f.requiredReturn = r
	return f
}

// Source implements fetcher.Fetcher.
func (f *OverviewFetcher) Source() string {
	return "alphavantage"
}

// Fetch implements fetcher.Fetcher.
func (f *OverviewFetcher) Fetch(ctx context.Context, symbol string) (stock.Profile, error) {
	return f.FetchProfile(ctx, symbol)
}

// FetchProfile retrieves the company overview and current price for symbol
func (f *OverviewFetcher) FetchProfile(ctx context.Context, symbol string) (stock.Profile, error) {
	var overview OverviewResponse
	if err := f.query(ctx, "OVERVIEW", symbol, &overview); err != nil {
		return stock.Profile{}, err
	}
	if err := overview.check(symbol); err != nil {
		return stock.Profile{}, err
	}
	if overview.Symbol == "" {
		return stock.Profile{}, fetcher.NewNotFoundError(symbol)
	}

	price, err := f.FetchPrice(ctx, symbol)
	if err != nil {
		return stock.Profile{}, err
	}

	p := stock.Profile{
		Symbol:   overview.Symbol,
		LongName: overview.Name,
		Sector:   titleCase(overview.Sector),
		Industry: titleCase(overview.Industry),
		Summary:  overview.Description,
	}
	p.Category = p.Industry

	revenue, ebitda := parseNumber(overview.RevenueTTM), parseNumber(overview.EBITDA)
	if revenue != 0 || ebitda != 0 {
		p.Financials = &stock.Financials{TotalRevenue: revenue, EBITDA: ebitda}
	}

	v, err := stock.ComputeValuation(stock.ValuationInputs{
		Price:         price,
		BPS:           parseNumber(overview.BookValue),
		EPS:           parseNumber(overview.EPS),
		DPS:           parseNumber(overview.DividendPerShare),
		ROE:           parseNumber(overview.ReturnOnEquityTTM),
		DividendYield: parseNumber(overview.DividendYield),
	}, f.requiredReturn)
	if err == nil {
		p.Valuation = &v
	}

	return p, nil
}

// FetchPrice retrieves the current stock price
func (f *OverviewFetcher) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	var result GlobalQuoteResponse
	if err := f.query(ctx, "GLOBAL_QUOTE", symbol, &result); err != nil {
		return 0, err
	}
	if err := result.check(symbol); err != nil {
		return 0, err
	}

	if result.GlobalQuote.Price == "" {
		return 0, fetcher.NewNotFoundError(symbol)
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("failed to parse stock price %q", result.GlobalQuote.Price))
	}

	return price, nil
}

func (f *OverviewFetcher) query(ctx context.Context, function, symbol string, result any) error {
	if err := f.limiter.Wait(ctx, ratelimit.APIAlphaVantage); err != nil {
		return err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   f.apiKey,
			"function": function,
			"symbol":   symbol,
		}).
		SetResult(result).
		Get("")

	if err := fetcher.CheckResponse(resp, err); err != nil {
		return fmt.Errorf("alphavantage %s for %s: %w", function, symbol, err)
	}
	return nil
}

func (t throttled) check(symbol string) error {
	switch {
	case t.Note != "":
		return fetcher.NewRateLimitError(200, t.Note)
	case t.Information != "":
		return fetcher.NewRateLimitError(200, t.Information)
	case t.ErrorMessage != "":
		return fetcher.NewNotFoundError(symbol)
	}
	return nil
}

func parseNumber(s string) float64 {
	switch s {
	case "", "None", "-", "N/A":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// titleCase turns "ELECTRONIC COMPUTERS" into "Electronic Computers".
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
