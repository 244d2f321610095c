// Package portfolio maintains the in-memory contract map and the derived
// per-root PortfolioSnapshot/ChainSnapshot/OptionSnapshot views.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/domain"
)

// OptionSnapshot is the live, market-data-writable view of one option
// contract. delta/gamma/theta/vega are already multiplied by contract size.
type OptionSnapshot struct {
	Symbol string
	Strike decimal.Decimal
	Right  domain.OptionRight
	Expiry time.Time

	MidPrice decimal.Decimal
	Delta    decimal.Decimal
	Gamma    decimal.Decimal
	Theta    decimal.Decimal
	Vega     decimal.Decimal
	MidIV    decimal.Decimal
}

// UnderlyingSnapshot is the live view of the root equity/index itself.
type UnderlyingSnapshot struct {
	Symbol     string
	Multiplier int
	MidPrice   decimal.Decimal
}

// TheoDelta returns the underlying's per-unit theoretical delta.
func (u *UnderlyingSnapshot) TheoDelta() decimal.Decimal {
	return decimal.NewFromInt(int64(u.Multiplier))
}

// ChainSnapshot groups the options sharing a root and expiry, keyed by
// strike string within Calls/Puts; each option sits in the map of its own
// right, so a strike listed with both a call and a put has an entry in each.
type ChainSnapshot struct {
	ChainSymbol  string
	Expiry       time.Time
	DaysToExpiry int

	Calls map[string]*OptionSnapshot
	Puts  map[string]*OptionSnapshot
}

func newChainSnapshot(chainSymbol string, expiry time.Time) *ChainSnapshot {
	return &ChainSnapshot{
		ChainSymbol: chainSymbol,
		Expiry:      expiry,
		Calls:       make(map[string]*OptionSnapshot),
		Puts:        make(map[string]*OptionSnapshot),
	}
}

// CalculateATMPrice returns the strike of the call (by convention) whose
// strike is closest to the underlying mid price.
func (c *ChainSnapshot) CalculateATMPrice(underlyingMid decimal.Decimal) (decimal.Decimal, bool) {
	var best decimal.Decimal
	var bestDiff decimal.Decimal
	found := false
	for _, opt := range c.Calls {
		diff := opt.Strike.Sub(underlyingMid).Abs()
		if !found || diff.LessThan(bestDiff) {
			best, bestDiff, found = opt.Strike, diff, true
		}
	}
	return best, found
}

// GetATMIV returns the implied vol of the ATM call, if present.
func (c *ChainSnapshot) GetATMIV(underlyingMid decimal.Decimal) (decimal.Decimal, bool) {
	strike, ok := c.CalculateATMPrice(underlyingMid)
	if !ok {
		return decimal.Zero, false
	}
	opt, ok := c.Calls[strike.String()]
	if !ok {
		return decimal.Zero, false
	}
	return opt.MidIV, true
}

// BestIV returns the lowest nonzero mid_iv across both sides of the chain.
func (c *ChainSnapshot) BestIV() (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	consider := func(opt *OptionSnapshot) {
		if opt.MidIV.IsZero() {
			return
		}
		if !found || opt.MidIV.LessThan(best) {
			best, found = opt.MidIV, true
		}
	}
	for _, opt := range c.Calls {
		consider(opt)
	}
	for _, opt := range c.Puts {
		consider(opt)
	}
	return best, found
}

// GetSkew returns the spread between the 25-delta-ish wings' iv, approximated
// here as put iv minus call iv at the ATM strike.
func (c *ChainSnapshot) GetSkew(underlyingMid decimal.Decimal) (decimal.Decimal, bool) {
	strike, ok := c.CalculateATMPrice(underlyingMid)
	if !ok {
		return decimal.Zero, false
	}
	call, okc := c.Calls[strike.String()]
	put, okp := c.Puts[strike.String()]
	if !okc || !okp {
		return decimal.Zero, false
	}
	return put.MidIV.Sub(call.MidIV), true
}

// PortfolioSnapshot is the per-root view: one underlying, its expiry chains,
// and a flat symbol index for direct option lookup.
type PortfolioSnapshot struct {
	Name       string
	Underlying *UnderlyingSnapshot
	Chains     map[string]*ChainSnapshot
	Options    map[string]*OptionSnapshot
}

func newPortfolioSnapshot(root string) *PortfolioSnapshot {
	return &PortfolioSnapshot{
		Name:    root,
		Chains:  make(map[string]*ChainSnapshot),
		Options: make(map[string]*OptionSnapshot),
	}
}

// GetChainByExpiry looks up the `{root}_{yyyymmdd}` chain for an expiry.
func (p *PortfolioSnapshot) GetChainByExpiry(expiry time.Time) (*ChainSnapshot, bool) {
	chain, ok := p.Chains[chainKey(p.Name, expiry)]
	return chain, ok
}

func chainKey(root string, expiry time.Time) string {
	return root + "_" + expiry.Format("20060102")
}
