package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract is immutable once created and keyed uniquely by Symbol.
type Contract struct {
	Symbol       string          `json:"symbol"`
	Exchange     Exchange        `json:"exchange"`
	Product      Product         `json:"product"`
	Multiplier   int             `json:"multiplier"`
	MinTick      decimal.Decimal `json:"min_tick"`
	MinVolume    decimal.Decimal `json:"min_volume"`
	TradingClass string          `json:"trading_class"`

	// Option-only fields, zero-valued for EQUITY/INDEX contracts.
	Strike decimal.Decimal `json:"strike,omitempty"`
	Right  OptionRight     `json:"right,omitempty"`
	Expiry time.Time       `json:"expiry,omitempty"`
	Root   string          `json:"root"`
}

// IsOption reports whether c is an OPTION product contract.
func (c Contract) IsOption() bool {
	return c.Product == ProductOption
}
