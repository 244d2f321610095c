package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a one-shot fill event. tradeid is globally unique; the referenced
// order must exist.
type Trade struct {
	TradeID   string          `json:"tradeid"`
	OrderID   string          `json:"orderid"`
	Symbol    string          `json:"symbol"`
	Direction Direction       `json:"direction"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Time      time.Time       `json:"time"`
}

// SignedVolume returns the trade's volume signed by direction: positive for
// a LONG (BUY) fill, negative for SHORT.
func (t Trade) SignedVolume() decimal.Decimal {
	if t.Direction == DirectionShort {
		return t.Volume.Neg()
	}
	return t.Volume
}
