package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"stockfetch/internal/stock"
)

var csvHeader = []string{
	"Symbol", "Name", "Sector", "Industry", "Category",
	"Current Price", "BPS", "EPS", "DPS", "ROE", "Dividend Yield",
	"PER", "PBR", "Fair Value", "Parity", "Expected Return",
	"Debt Ratio", "Current Ratio",
}

// WriteCSV writes one row per profile. Missing figures are empty cells.
func WriteCSV(w io.Writer, profiles []stock.Profile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, p := range profiles {
		row := []string{p.Symbol, p.DisplayName(), p.Sector, p.Industry, p.Category}

		if v := p.Valuation; v != nil {
			row = append(row,
				num(v.Price), num(v.BPS), num(v.EPS), num(v.DPS), num(v.ROE), num(v.DividendYield),
				num(v.PER), num(v.PBR), num(v.FairValue), num(v.Parity), num(v.ExpectedReturn),
			)
		} else {
			row = append(row, make([]string, 11)...)
		}

		if f := p.Financials; f != nil {
			row = append(row, num(f.DebtRatio()), num(f.CurrentRatio()))
		} else {
			row = append(row, "", "")
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
