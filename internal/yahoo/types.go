package yahoo

// rawValue is Yahoo's formatted number wrapper, e.g. {"raw": 0.07, "fmt": "7.00%"}.
type rawValue struct {
	Raw float64 `json:"raw"`
}

// quoteSummaryResponse represents the v10 quoteSummary payload.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResult struct {
	Price struct {
		Symbol             string   `json:"symbol"`
		ShortName          string   `json:"shortName"`
		LongName           string   `json:"longName"`
		RegularMarketPrice rawValue `json:"regularMarketPrice"`
	} `json:"price"`

	AssetProfile struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`

	FundProfile struct {
		CategoryName string `json:"categoryName"`
	} `json:"fundProfile"`

	TopHoldings struct {
		Holdings []struct {
			Symbol         string   `json:"symbol"`
			HoldingName    string   `json:"holdingName"`
			HoldingPercent rawValue `json:"holdingPercent"`
		} `json:"holdings"`
	} `json:"topHoldings"`

	IncomeStatementHistory struct {
		Statements []incomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`

	BalanceSheetHistory struct {
		Statements []balanceSheet `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`

	CashflowStatementHistory struct {
		Statements []cashflowStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`

	DefaultKeyStatistics struct {
		BookValue   rawValue `json:"bookValue"`
		TrailingEps rawValue `json:"trailingEps"`
	} `json:"defaultKeyStatistics"`

	FinancialData struct {
		ReturnOnEquity rawValue `json:"returnOnEquity"`
		Ebitda         rawValue `json:"ebitda"`
	} `json:"financialData"`

	SummaryDetail struct {
		DividendRate  rawValue `json:"dividendRate"`
		DividendYield rawValue `json:"dividendYield"`
	} `json:"summaryDetail"`
}

type incomeStatement struct {
	TotalRevenue    rawValue `json:"totalRevenue"`
	OperatingIncome rawValue `json:"operatingIncome"`
	NetIncome       rawValue `json:"netIncome"`
}

type balanceSheet struct {
	TotalAssets             rawValue `json:"totalAssets"`
	TotalLiab               rawValue `json:"totalLiab"`
	TotalStockholderEquity  rawValue `json:"totalStockholderEquity"`
	TotalCurrentAssets      rawValue `json:"totalCurrentAssets"`
	TotalCurrentLiabilities rawValue `json:"totalCurrentLiabilities"`
	Cash                    rawValue `json:"cash"`
}

type cashflowStatement struct {
	TotalCashFromOperatingActivities      rawValue `json:"totalCashFromOperatingActivities"`
	TotalCashflowsFromInvestingActivities rawValue `json:"totalCashflowsFromInvestingActivities"`
	TotalCashFromFinancingActivities      rawValue `json:"totalCashFromFinancingActivities"`
	CapitalExpenditures                   rawValue `json:"capitalExpenditures"`
}
