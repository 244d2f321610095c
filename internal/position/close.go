package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dufanyin/optionrunner/internal/combo"
	"github.com/dufanyin/optionrunner/internal/domain"
)

const closeReferencePrefix = "PositionEngine"

// CloseAllStrategyPositions emits the closing MARKET orders for every
// nonzero child of strategyName's holding.
func (e *Engine) CloseAllStrategyPositions(strategyName string) error {
	holding, ok := e.GetHolding(strategyName)
	if !ok {
		return fmt.Errorf("position: no holding for strategy %q", strategyName)
	}
	if e.sender == nil {
		return fmt.Errorf("position: no order sender wired")
	}

	if err := e.closeUnderlyingPosition(strategyName, holding); err != nil {
		return err
	}
	if err := e.closeAllComboPositions(strategyName, holding); err != nil {
		return err
	}
	return e.closeAllOptionPositions(strategyName, holding)
}

func (e *Engine) closeUnderlyingPosition(strategyName string, holding *domain.StrategyHolding) error {
	pos := holding.Underlying
	if pos.Quantity.IsZero() {
		return nil
	}
	direction := domain.DirectionShort
	if pos.Quantity.IsNegative() {
		direction = domain.DirectionLong
	}
	req := domain.OrderRequest{
		Symbol:    pos.Symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      domain.OrderTypeMarket,
		Price:     decimal.Zero,
		Volume:    pos.Quantity.Abs(),
		Reference: fmt.Sprintf("%s_%s", closeReferencePrefix, strategyName),
	}
	return e.sender.SendOrder(strategyName, req)
}

func (e *Engine) closeAllOptionPositions(strategyName string, holding *domain.StrategyHolding) error {
	for _, opt := range holding.Options {
		if opt.Quantity.IsZero() {
			continue
		}
		if err := e.closeOptionPosition(strategyName, opt); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) closeOptionPosition(strategyName string, opt *domain.OptionPosition) error {
	direction := domain.DirectionShort
	if opt.Quantity.IsNegative() {
		direction = domain.DirectionLong
	}
	req := domain.OrderRequest{
		Symbol:    opt.Symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      domain.OrderTypeMarket,
		Price:     decimal.Zero,
		Volume:    opt.Quantity.Abs(),
		Reference: fmt.Sprintf("%s_%s", closeReferencePrefix, strategyName),
	}
	return e.sender.SendOrder(strategyName, req)
}

func (e *Engine) closeAllComboPositions(strategyName string, holding *domain.StrategyHolding) error {
	for _, c := range holding.Combos {
		if c.Quantity.IsZero() {
			continue
		}
		if err := e.closeComboPosition(strategyName, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) closeComboPosition(strategyName string, c *domain.ComboPosition) error {
	direction := domain.DirectionShort
	if c.Quantity.IsNegative() {
		direction = domain.DirectionLong
	}

	inputs := make(map[string]combo.Input, len(c.Legs))
	for i, leg := range c.Legs {
		in := combo.Input{Symbol: leg.Symbol}
		if fields, err := domain.ParseOptionSymbol(leg.Symbol); err == nil {
			in.Expiry = fields.Expiry.Format("20060102")
			in.Right = fields.Right
			in.Strike = fields.Strike.String()
		}
		inputs[fmt.Sprintf("leg%d", i)] = in
	}

	volume := int(c.Quantity.Abs().IntPart())
	legs, _, err := combo.Build(domain.ComboCustom, inputs, direction, volume, 0)
	if err != nil {
		return fmt.Errorf("position: close combo %s: %w", c.Symbol, err)
	}

	req := domain.OrderRequest{
		Symbol:    c.Symbol,
		Exchange:  domain.ExchangeSmart,
		Direction: direction,
		Type:      domain.OrderTypeMarket,
		Price:     decimal.Zero,
		Volume:    decimal.NewFromInt(int64(volume)),
		IsCombo:   true,
		Legs:      legs,
		ComboType: domain.ComboCustom,
		Reference: fmt.Sprintf("%s_%s", closeReferencePrefix, strategyName),
	}
	return e.sender.SendOrder(strategyName, req)
}
