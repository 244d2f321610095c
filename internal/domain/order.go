package domain

import (
	"github.com/shopspring/decimal"
)

// Leg describes one child instrument of a combo order or combo position.
type Leg struct {
	Symbol    string          `json:"symbol"`
	Direction Direction       `json:"direction"`
	Ratio     int             `json:"ratio"`
	Right     OptionRight     `json:"right"`
	Strike    decimal.Decimal `json:"strike"`
}

// OrderRequest is what a strategy (via the Strategy Manager) hands to the
// Gateway Adapter to originate an order.
type OrderRequest struct {
	Symbol    string          `json:"symbol"`
	Exchange  Exchange        `json:"exchange"`
	Direction Direction       `json:"direction"`
	Type      OrderType       `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`

	IsCombo   bool      `json:"is_combo"`
	Legs      []Leg     `json:"legs,omitempty"`
	ComboType ComboType `json:"combo_type,omitempty"`

	Reference string `json:"reference"`
}

// CreateOrderData builds the synthetic, SUBMITTING-state Order the Adapter
// caches and publishes before the external ack returns.
func (r OrderRequest) CreateOrderData(orderID string) Order {
	return Order{
		OrderID:   orderID,
		Symbol:    r.Symbol,
		Exchange:  r.Exchange,
		Direction: r.Direction,
		Type:      r.Type,
		Price:     r.Price,
		Volume:    r.Volume,
		Traded:    decimal.Zero,
		Status:    StatusSubmitting,
		IsCombo:   r.IsCombo,
		Legs:      r.Legs,
		ComboType: r.ComboType,
		Reference: r.Reference,
	}
}

// CancelRequest identifies an order to cancel.
type CancelRequest struct {
	OrderID  string   `json:"orderid"`
	Symbol   string   `json:"symbol"`
	Exchange Exchange `json:"exchange"`
}

// Order is the Adapter/Strategy Manager's local view of an order's lifecycle
// state.
type Order struct {
	OrderID   string          `json:"orderid"`
	Symbol    string          `json:"symbol"`
	Exchange  Exchange        `json:"exchange"`
	Direction Direction       `json:"direction"`
	Type      OrderType       `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Traded    decimal.Decimal `json:"traded"`
	Status    Status          `json:"status"`

	IsCombo   bool      `json:"is_combo"`
	Legs      []Leg     `json:"legs,omitempty"`
	ComboType ComboType `json:"combo_type,omitempty"`

	Reference string `json:"reference"`
}

// IsActive reports whether o is still live.
func (o Order) IsActive() bool {
	return o.Status.IsActive()
}

// CreateCancelRequest builds the CancelRequest for o.
func (o Order) CreateCancelRequest() CancelRequest {
	return CancelRequest{OrderID: o.OrderID, Symbol: o.Symbol, Exchange: o.Exchange}
}
