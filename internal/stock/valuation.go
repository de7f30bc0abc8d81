package stock

import (
	"errors"
	"math"
)

// DefaultRequiredReturn is the discount rate r used for the fair value.
const DefaultRequiredReturn = 0.1

// ErrUndefinedValuation is returned when a ratio would divide by zero.
var ErrUndefinedValuation = errors.New("valuation undefined for zero input")

// ValuationInputs are per-share figures and ratios. ROE and DividendYield
// are fractions, not percentages.
type ValuationInputs struct {
	Price         float64
	BPS           float64
	EPS           float64
	DPS           float64
	ROE           float64
	DividendYield float64
}

// Valuation is the residual-income style estimate for a stock.
type Valuation struct {
	Price          float64 `json:"price"`
	BPS            float64 `json:"bps"`
	EPS            float64 `json:"eps"`
	DPS            float64 `json:"dps"`
	ROE            float64 `json:"roe"`
	DividendYield  float64 `json:"dividendYield"`
	PER            float64 `json:"per"`
	PBR            float64 `json:"pbr"`
	FairValue      float64 `json:"fairValue"`
	Parity         float64 `json:"parity"`
	ExpectedReturn float64 `json:"expectedReturn"`
}

// ComputeValuation derives PER, PBR and a fair value of (ROE/r)*BPS rounded
// to the nearest ten. A non-positive r uses DefaultRequiredReturn.
func ComputeValuation(in ValuationInputs, r float64) (Valuation, error) {
	if r <= 0 {
		r = DefaultRequiredReturn
	}
	if in.Price == 0 || in.EPS == 0 || in.BPS == 0 {
		return Valuation{}, ErrUndefinedValuation
	}

	fair := math.RoundToEven(in.ROE/r*in.BPS/10) * 10
	if fair == 0 {
		return Valuation{}, ErrUndefinedValuation
	}

	return Valuation{
		Price:          in.Price,
		BPS:            in.BPS,
		EPS:            in.EPS,
		DPS:            in.DPS,
		ROE:            in.ROE,
		DividendYield:  in.DividendYield,
		PER:            in.Price / in.EPS,
		PBR:            in.Price / in.BPS,
		FairValue:      fair,
		Parity:         in.Price / fair,
		ExpectedReturn: (fair - in.Price) / in.Price,
	}, nil
}
