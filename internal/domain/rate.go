package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a singleton: the current token price in each supported fiat
// currency. Updated by administrative action; no history is kept.
type ExchangeRate struct {
	RateUSD   decimal.Decimal
	RateUAH   decimal.Decimal
	UpdatedAt time.Time
}

func (r ExchangeRate) For(c FiatCurrency) (decimal.Decimal, bool) {
	switch c {
	case FiatUSD:
		return r.RateUSD, true
	case FiatUAH:
		return r.RateUAH, true
	}
	return decimal.Decimal{}, false
}
