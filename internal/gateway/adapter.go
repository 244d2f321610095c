// Package gateway presents a narrow, synchronous-looking surface over an
// asynchronous external execution venue, translating its callbacks into bus
// events.
package gateway

import (
	"github.com/dufanyin/optionrunner/internal/domain"
	"github.com/dufanyin/optionrunner/internal/eventbus"
)

// Publisher is the subset of eventbus.Bus the adapter needs.
type Publisher interface {
	Put(event eventbus.Event)
}

// Adapter is the core's view of an execution venue.
type Adapter interface {
	// Connect establishes the external session. Idempotent when already
	// connected.
	Connect(host string, port int, clientID int, account string) error

	// Disconnect tears down the external session. Idempotent.
	Disconnect() error

	// SendOrder allocates a local order id, builds the external contract,
	// and sends the order. Returns the local order id, empty on failure.
	SendOrder(req domain.OrderRequest) (string, error)

	// CancelOrder is fire-and-forget; success is observed via a later
	// ORDER status update to CANCELLED.
	CancelOrder(req domain.CancelRequest) error

	// QueryAccount requests a fresh account balance snapshot.
	QueryAccount()

	// QueryPosition requests a fresh raw position snapshot.
	QueryPosition()

	// QueryPortfolio requests contract/option-chain details for an
	// underlying. Out of this core's scope to actually resolve (that is
	// the external market-data collaborator's job); adapters may treat
	// this as a no-op.
	QueryPortfolio(underlying string)

	// ProcessTimer is driven once per TIMER event; implementations use it
	// to heartbeat-check the connection every 10 ticks.
	ProcessTimer()
}
