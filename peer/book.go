package peer

import (
	"net"
	"time"
)

// DefaultStaleness is the idle window after which work-free peer state is
// discarded.
const DefaultStaleness = 3 * time.Minute

// Connection is the capability required of any per-peer state managed by a
// Book.
type Connection interface {
	// Pending reports whether the state still holds outstanding work, for
	// example unflushed confirmations or unacknowledged messages. Entries
	// with pending work are never removed by Clean.
	Pending() bool
}

type entry[C Connection] struct {
	addr      net.Addr
	state     C
	lastTouch time.Time
}

// Book is a per-peer state store keyed by network address. State is created
// lazily on first reference, iterated in round-robin order and swept for
// staleness. The book exclusively owns the state objects; engines access
// them only through Update, Get and Next and never retain references across
// channel operations.
type Book[C Connection] struct {
	staleness time.Duration
	entries   map[string]*entry[C]
	order     []string
	cursor    int
}

// NewBook creates an empty book with the given staleness window.
func NewBook[C Connection](staleness time.Duration) *Book[C] {
	return &Book[C]{
		staleness: staleness,
		entries:   make(map[string]*entry[C]),
	}
}

// Update returns the state for addr, creating it with factory if absent.
// The entry's last-touched timestamp is refreshed to now.
func (b *Book[C]) Update(now time.Time, addr net.Addr, factory func() C) C {
	key := addr.String()
	e, ok := b.entries[key]
	if !ok {
		e = &entry[C]{addr: addr, state: factory()}
		b.entries[key] = e
		b.order = append(b.order, key)
	}
	e.lastTouch = now
	return e.state
}

// Get returns the state for addr without creating it. When present, the
// entry's last-touched timestamp is refreshed to now.
func (b *Book[C]) Get(now time.Time, addr net.Addr) (C, bool) {
	e, ok := b.entries[addr.String()]
	if !ok {
		var zero C
		return zero, false
	}
	e.lastTouch = now
	return e.state, true
}

// Next returns the next entry of the current round-robin sweep. It reports
// false once every peer has been visited exactly once; the following call
// begins a new sweep.
func (b *Book[C]) Next() (net.Addr, C, bool) {
	if b.cursor >= len(b.order) {
		b.cursor = 0
		var zero C
		return nil, zero, false
	}
	e := b.entries[b.order[b.cursor]]
	b.cursor++
	return e.addr, e.state, true
}

// Clean removes every entry that has no pending work and has not been
// touched within the staleness window. Entries with pending work are kept
// regardless of age.
func (b *Book[C]) Clean(now time.Time) {
	kept := b.order[:0]
	cursor := b.cursor
	for i, key := range b.order {
		e := b.entries[key]
		if !e.state.Pending() && now.Sub(e.lastTouch) > b.staleness {
			delete(b.entries, key)
			if i < b.cursor {
				cursor--
			}
			continue
		}
		kept = append(kept, key)
	}
	b.order = kept
	b.cursor = cursor
}

// Len returns the number of tracked peers.
func (b *Book[C]) Len() int {
	return len(b.entries)
}
