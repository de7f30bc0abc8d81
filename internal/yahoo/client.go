// Package yahoo fetches company and fund profiles from the Yahoo Finance
// quoteSummary endpoint and lists ETFs from the public listing page.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/logging"
	"stockfetch/internal/ratelimit"
	"stockfetch/internal/stock"
)

const (
	// DefaultBaseURL serves the quoteSummary API.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	sourceName = "yahoo"
)

// DefaultModules are the quoteSummary modules a profile is built from.
var DefaultModules = []string{
	"price",
	"assetProfile",
	"fundProfile",
	"topHoldings",
	"incomeStatementHistory",
	"balanceSheetHistory",
	"cashflowStatementHistory",
	"defaultKeyStatistics",
	"financialData",
	"summaryDetail",
}

// Options configure a Client.
type Options struct {
	BaseURL string
	HTTP    fetcher.Options
	Limiter *ratelimit.Limiter

	// RequiredReturn is the discount rate for the valuation. Zero uses
	// stock.DefaultRequiredReturn.
	RequiredReturn float64
}

// Client fetches stock.Profile values for ticker symbols.
type Client struct {
	client         *resty.Client
	limiter        *ratelimit.Limiter
	modules        string
	requiredReturn float64
	logger         zerolog.Logger
}

// NewClient creates a new quoteSummary client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Client{
		client:         fetcher.NewHTTPClient(opts.BaseURL, opts.HTTP),
		limiter:        opts.Limiter,
		modules:        strings.Join(DefaultModules, ","),
		requiredReturn: opts.RequiredReturn,
		logger:         logging.NewLogger(sourceName),
	}
}

// Source implements fetcher.Fetcher.
func (c *Client) Source() string {
	return sourceName
}

// Fetch implements fetcher.Fetcher.
func (c *Client) Fetch(ctx context.Context, symbol string) (stock.Profile, error) {
	return c.FetchProfile(ctx, symbol)
}

// FetchProfile retrieves the profile, latest financial statements, top fund
// holdings and valuation for symbol.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (stock.Profile, error) {
	if strings.TrimSpace(symbol) == "" {
		return stock.Profile{}, fetcher.NewValidationError("symbol is empty")
	}
	if err := c.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return stock.Profile{}, err
	}

	var result quoteSummaryResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("modules", c.modules).
		SetResult(&result).
		Get("/v10/finance/quoteSummary/" + url.PathEscape(symbol))

	if err := fetcher.CheckResponse(resp, err); err != nil {
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Type == fetcher.ErrorTypeNotFound {
			return stock.Profile{}, fetcher.NewNotFoundError(symbol)
		}
		return stock.Profile{}, fmt.Errorf("quoteSummary for %s: %w", symbol, err)
	}

	if len(result.QuoteSummary.Result) == 0 {
		if e := result.QuoteSummary.Error; e != nil && e.Description != "" {
			c.logger.Debug().Str("symbol", symbol).Str("code", e.Code).Msg(e.Description)
		}
		return stock.Profile{}, fetcher.NewNotFoundError(symbol)
	}

	return c.buildProfile(symbol, result.QuoteSummary.Result[0]), nil
}

func (c *Client) buildProfile(symbol string, r quoteSummaryResult) stock.Profile {
	p := stock.Profile{
		Symbol:    r.Price.Symbol,
		ShortName: r.Price.ShortName,
		LongName:  r.Price.LongName,
		Sector:    r.AssetProfile.Sector,
		Industry:  r.AssetProfile.Industry,
		Category:  r.FundProfile.CategoryName,
		Summary:   r.AssetProfile.LongBusinessSummary,
	}
	if p.Symbol == "" {
		p.Symbol = symbol
	}
	// Equities have no fund category.
	if p.Category == "" {
		p.Category = p.Industry
	}

	p.Financials = financials(r)

	holdings := make([]stock.Holding, 0, len(r.TopHoldings.Holdings))
	for _, h := range r.TopHoldings.Holdings {
		holdings = append(holdings, stock.Holding{
			Name:    h.HoldingName,
			Symbol:  h.Symbol,
			Percent: stock.FormatPercent(h.HoldingPercent.Raw),
		})
	}
	if len(holdings) > 0 {
		p.TopHoldings = stock.TopHoldings(holdings)
	}

	v, err := stock.ComputeValuation(stock.ValuationInputs{
		Price:         r.Price.RegularMarketPrice.Raw,
		BPS:           r.DefaultKeyStatistics.BookValue.Raw,
		EPS:           r.DefaultKeyStatistics.TrailingEps.Raw,
		DPS:           r.SummaryDetail.DividendRate.Raw,
		ROE:           r.FinancialData.ReturnOnEquity.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
	}, c.requiredReturn)
	if err == nil {
		p.Valuation = &v
	}

	return p
}

// financials takes the most recent annual statements. All three are
// required; a partial set yields nil.
func financials(r quoteSummaryResult) *stock.Financials {
	inc := r.IncomeStatementHistory.Statements
	bal := r.BalanceSheetHistory.Statements
	cf := r.CashflowStatementHistory.Statements
	if len(inc) == 0 || len(bal) == 0 || len(cf) == 0 {
		return nil
	}

	i, b, c := inc[0], bal[0], cf[0]
	return &stock.Financials{
		TotalRevenue:       i.TotalRevenue.Raw,
		OperatingIncome:    i.OperatingIncome.Raw,
		NetIncome:          i.NetIncome.Raw,
		EBITDA:             r.FinancialData.Ebitda.Raw,
		TotalAssets:        b.TotalAssets.Raw,
		TotalLiabilities:   b.TotalLiab.Raw,
		StockholderEquity:  b.TotalStockholderEquity.Raw,
		CurrentAssets:      b.TotalCurrentAssets.Raw,
		CurrentLiabilities: b.TotalCurrentLiabilities.Raw,
		OperatingCashFlow:  c.TotalCashFromOperatingActivities.Raw,
		InvestingCashFlow:  c.TotalCashflowsFromInvestingActivities.Raw,
		FinancingCashFlow:  c.TotalCashFromFinancingActivities.Raw,
		FreeCashFlow:       c.TotalCashFromOperatingActivities.Raw + c.CapitalExpenditures.Raw,
		CashAndEquivalents: b.Cash.Raw,
	}
}
