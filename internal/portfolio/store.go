package portfolio

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/domain"
)

// Store is the keyed contract map plus derived portfolio snapshots.
// Contract ingestion (map/chain structure changes) is protected by mu; live
// numeric field writes on an already-present OptionSnapshot/
// UnderlyingSnapshot follow a single-writer, lock-free-reader discipline
// and bypass mu entirely.
type Store struct {
	logger *zap.Logger

	mu         sync.RWMutex
	contracts  map[string]domain.Contract
	portfolios map[string]*PortfolioSnapshot
}

// New constructs an empty Store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:     logger.Named("portfolio"),
		contracts:  make(map[string]domain.Contract),
		portfolios: make(map[string]*PortfolioSnapshot),
	}
}

// IngestContract records c and folds it into the appropriate
// PortfolioSnapshot, creating the portfolio and chain lazily: EQUITY/INDEX
// contracts set the portfolio's underlying, OPTION contracts are added to
// the expiry chain.
func (s *Store) IngestContract(c domain.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[c.Symbol] = c

	root := c.Root
	if root == "" {
		root = c.Symbol
	}
	pf, ok := s.portfolios[root]
	if !ok {
		pf = newPortfolioSnapshot(root)
		s.portfolios[root] = pf
	}

	switch c.Product {
	case domain.ProductOption:
		snap := &OptionSnapshot{
			Symbol: c.Symbol,
			Strike: c.Strike,
			Right:  c.Right,
			Expiry: c.Expiry,
		}
		chain, ok := pf.Chains[chainKey(root, c.Expiry)]
		if !ok {
			chain = newChainSnapshot(chainKey(root, c.Expiry), c.Expiry)
			pf.Chains[chainKey(root, c.Expiry)] = chain
		}
		strikeKey := c.Strike.String()
		if c.Right == domain.OptionCall {
			chain.Calls[strikeKey] = snap
		} else {
			chain.Puts[strikeKey] = snap
		}
		pf.Options[c.Symbol] = snap
	default:
		pf.Underlying = &UnderlyingSnapshot{
			Symbol:     c.Symbol,
			Multiplier: c.Multiplier,
		}
	}
}

// Contract looks up an ingested contract by symbol.
func (s *Store) Contract(symbol string) (domain.Contract, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[symbol]
	return c, ok
}

// Portfolio looks up the PortfolioSnapshot for a root symbol.
func (s *Store) Portfolio(root string) (*PortfolioSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[root]
	return p, ok
}

// Portfolios returns every known PortfolioSnapshot.
func (s *Store) Portfolios() []*PortfolioSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PortfolioSnapshot, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		out = append(out, p)
	}
	return out
}

// Option looks up the live OptionSnapshot for a symbol across all
// portfolios.
func (s *Store) Option(symbol string) (*OptionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pf := range s.portfolios {
		if opt, ok := pf.Options[symbol]; ok {
			return opt, true
		}
	}
	return nil, false
}

// Underlying looks up the live UnderlyingSnapshot for a root symbol.
func (s *Store) Underlying(root string) (*UnderlyingSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pf, ok := s.portfolios[root]
	if !ok || pf.Underlying == nil {
		return nil, false
	}
	return pf.Underlying, true
}
