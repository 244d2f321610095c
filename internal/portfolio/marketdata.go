package portfolio

import "github.com/shopspring/decimal"

// OptionMarketData is one option's refreshed greeks/price, as handed to the
// store by the (out-of-scope) market-data poller.
type OptionMarketData struct {
	Symbol   string
	MidPrice decimal.Decimal
	Delta    decimal.Decimal
	Gamma    decimal.Decimal
	Theta    decimal.Decimal
	Vega     decimal.Decimal
	MidIV    decimal.Decimal
}

// ChainMarketData is a batch refresh for every option in one expiry chain,
// plus the underlying's own mid price.
type ChainMarketData struct {
	Root           string
	UnderlyingMid  decimal.Decimal
	Options        []OptionMarketData
}

// ApplyChainMarketData writes mid_price/greeks/iv into the referenced
// OptionSnapshot and the underlying mid price. Only the market-data polling
// goroutine may call this; readers tolerate torn numeric fields and need no
// lock.
func (s *Store) ApplyChainMarketData(data ChainMarketData) {
	if u, ok := s.Underlying(data.Root); ok {
		u.MidPrice = data.UnderlyingMid
	}
	for _, md := range data.Options {
		opt, ok := s.Option(md.Symbol)
		if !ok {
			continue
		}
		opt.MidPrice = md.MidPrice
		opt.Delta = md.Delta
		opt.Gamma = md.Gamma
		opt.Theta = md.Theta
		opt.Vega = md.Vega
		opt.MidIV = md.MidIV
	}
}
