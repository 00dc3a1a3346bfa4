package tracker

import (
	"sort"
	"sync"

	"github.com/SagarFieldElevate/LiveTradingApp/internal/types"
)

// Book is the in-memory set of open positions. The executor adds on fill and
// removes on confirmed close; the tracker mutates prices and stops in between.
// All access goes through the lock so the ops API and the breaker can read a
// consistent view.
type Book struct {
	mu        sync.RWMutex
	positions map[string]*types.Position
	reserved  map[string]bool
	closing   map[string]bool
}

func NewBook() *Book {
	return &Book{
		positions: make(map[string]*types.Position),
		reserved:  make(map[string]bool),
		closing:   make(map[string]bool),
	}
}

func (b *Book) Add(p *types.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[p.ID] = p
}

func (b *Book) Get(id string) (*types.Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.positions[id]
	return p, ok
}

// Remove takes the position out of the book once its close is confirmed.
func (b *Book) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.positions, id)
	delete(b.closing, id)
}

// HasStrategy reports whether the strategy already holds an open position.
func (b *Book) HasStrategy(strategyID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasStrategyLocked(strategyID)
}

func (b *Book) hasStrategyLocked(strategyID string) bool {
	for _, p := range b.positions {
		if p.StrategyID == strategyID {
			return true
		}
	}
	return false
}

// Reserve claims the strategy's single-position slot before the entry order
// goes out. The claim fails while a position or an earlier reservation holds
// the slot, so two in-flight entries for the same strategy cannot both fill.
func (b *Book) Reserve(strategyID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reserved[strategyID] || b.hasStrategyLocked(strategyID) {
		return false
	}
	b.reserved[strategyID] = true
	return true
}

// Release frees the reservation once the entry settled either way. The filled
// position itself keeps holding the slot after a successful entry.
func (b *Book) Release(strategyID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.reserved, strategyID)
}

// MarkClosing flags a close in flight for the position. It fails if the
// position is unknown or a close is already in flight, so every close entry
// point submits a given position at most once.
func (b *Book) MarkClosing(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.positions[id]; !ok {
		return false
	}
	if b.closing[id] {
		return false
	}
	b.closing[id] = true
	return true
}

// ClearClosing lifts the in-flight flag after a failed close attempt so a
// later trigger can resubmit.
func (b *Book) ClearClosing(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.closing, id)
}

func (b *Book) IsClosing(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closing[id]
}

// List returns copies of all open positions, ordered by entry time.
func (b *Book) List() []*types.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*types.Position, 0, len(b.positions))
	for _, p := range b.positions {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

// UnrealizedTotal sums the unrealized P&L of every open position at its last
// tracked price. Wired into the breaker's daily loss check.
func (b *Book) UnrealizedTotal() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, p := range b.positions {
		total += p.UnrealizedPnL()
	}
	return total
}

// update applies fn to the live position under the write lock and returns a
// copy of the result.
func (b *Book) update(id string, fn func(*types.Position)) (types.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[id]
	if !ok {
		return types.Position{}, false
	}
	fn(p)
	cp := *p
	return cp, true
}
