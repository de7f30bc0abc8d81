package stock

// Financials holds the latest annual statement figures. Zero means the
// figure was not reported.
type Financials struct {
	TotalRevenue       float64 `json:"totalRevenue"`
	OperatingIncome    float64 `json:"operatingIncome"`
	NetIncome          float64 `json:"netIncome"`
	EBITDA             float64 `json:"ebitda"`
	TotalAssets        float64 `json:"totalAssets"`
	TotalLiabilities   float64 `json:"totalLiabilities"`
	StockholderEquity  float64 `json:"stockholderEquity"`
	CurrentAssets      float64 `json:"currentAssets"`
	CurrentLiabilities float64 `json:"currentLiabilities"`
	OperatingCashFlow  float64 `json:"operatingCashFlow"`
	InvestingCashFlow  float64 `json:"investingCashFlow"`
	FinancingCashFlow  float64 `json:"financingCashFlow"`
	FreeCashFlow       float64 `json:"freeCashFlow"`
	CashAndEquivalents float64 `json:"cashAndEquivalents"`
}

// LineItem is a labelled figure in display order.
type LineItem struct {
	Label string
	Value float64
}

// DebtRatio is total liabilities over total assets, in percent.
func (f Financials) DebtRatio() float64 {
	if f.TotalAssets == 0 {
		return 0
	}
	return f.TotalLiabilities / f.TotalAssets * 100
}

// CurrentRatio is current assets over current liabilities, in percent.
func (f Financials) CurrentRatio() float64 {
	if f.CurrentLiabilities == 0 {
		return 0
	}
	return f.CurrentAssets / f.CurrentLiabilities * 100
}

// LineItems lists every figure followed by the two derived ratios.
func (f Financials) LineItems() []LineItem {
	return []LineItem{
		{"Revenue", f.TotalRevenue},
		{"Operating Income", f.OperatingIncome},
		{"Net Income", f.NetIncome},
		{"EBITDA", f.EBITDA},
		{"Total Assets", f.TotalAssets},
		{"Total Liabilities", f.TotalLiabilities},
		{"Stockholder Equity", f.StockholderEquity},
		{"Current Assets", f.CurrentAssets},
		{"Current Liabilities", f.CurrentLiabilities},
		{"Operating Cash Flow", f.OperatingCashFlow},
		{"Investing Cash Flow", f.InvestingCashFlow},
		{"Financing Cash Flow", f.FinancingCashFlow},
		{"Free Cash Flow", f.FreeCashFlow},
		{"Cash And Cash Equivalents", f.CashAndEquivalents},
		{"Debt Ratio", f.DebtRatio()},
		{"Current Ratio", f.CurrentRatio()},
	}
}
