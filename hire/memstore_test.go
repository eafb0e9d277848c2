package hire

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
)

// memStore is an optimistic in-memory Store: a transaction fails at commit
// with ErrTransient when a gig it read was committed by someone else first.
type memStore struct {
	mu       sync.Mutex
	gigs     map[string]gig.Gig
	bids     map[string]bid.Bid
	versions map[string]int
	outbox   []outboxRow

	begins  int
	commits int
	aborts  int

	beginErr       error
	commitFailures int
	updateManyErr  error
	afterGigRead   func()
}

type outboxRow struct {
	topic   string
	payload map[string]any
}

func newMemStore() *memStore {
	return &memStore{
		gigs:     make(map[string]gig.Gig),
		bids:     make(map[string]bid.Bid),
		versions: make(map[string]int),
	}
}

func (s *memStore) addGig(id, clientID string, status gig.Status) {
	s.gigs[id] = gig.Gig{ID: id, Title: "Gig " + id, ClientID: clientID, Status: status, Budget: 500}
}

func (s *memStore) addBid(id, gigID, freelancerID string, amount float64) {
	s.bids[id] = bid.Bid{ID: id, GigID: gigID, FreelancerID: freelancerID, Amount: amount, Status: bid.StatusPending}
}

func (s *memStore) gig(id string) gig.Gig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gigs[id]
}

func (s *memStore) bid(id string) bid.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bids[id]
}

func (s *memStore) outboxRows() []outboxRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outboxRow(nil), s.outbox...)
}

func (s *memStore) counts() (begins, commits, aborts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins, s.commits, s.aborts
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	return &memTx{
		s:         s,
		readGigs:  make(map[string]int),
		gigWrites: make(map[string]gig.Gig),
		bidWrites: make(map[string]bid.Bid),
	}, nil
}

type memTx struct {
	s         *memStore
	readGigs  map[string]int
	gigWrites map[string]gig.Gig
	bidWrites map[string]bid.Bid
	outbox    []outboxRow
	done      bool
}

func (t *memTx) bidView(id string) (bid.Bid, bool) {
	if b, ok := t.bidWrites[id]; ok {
		return b, true
	}
	b, ok := t.s.bids[id]
	return b, ok
}

func (t *memTx) gigView(id string) (gig.Gig, bool) {
	if g, ok := t.gigWrites[id]; ok {
		return g, true
	}
	g, ok := t.s.gigs[id]
	if ok {
		if _, seen := t.readGigs[id]; !seen {
			t.readGigs[id] = t.s.versions[id]
		}
	}
	return g, ok
}

func (t *memTx) GetBid(_ context.Context, id string) (bid.Bid, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.bidView(id)
	if !ok {
		return bid.Bid{}, bid.ErrNotFound
	}
	return b, nil
}

func (t *memTx) GetGig(_ context.Context, id string) (gig.Gig, error) {
	t.s.mu.Lock()
	g, ok := t.gigView(id)
	hook := t.s.afterGigRead
	t.s.mu.Unlock()

	if !ok {
		return gig.Gig{}, gig.ErrNotFound
	}
	if hook != nil {
		hook()
	}
	return g, nil
}

func (t *memTx) UpdateBidStatus(_ context.Context, id string, status bid.Status) (bid.Bid, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.bidView(id)
	if !ok {
		return bid.Bid{}, bid.ErrNotFound
	}
	b.Status = status
	t.bidWrites[id] = b
	return b, nil
}

func (t *memTx) UpdateManyBidStatus(_ context.Context, gigID, excludeID string, next, where bid.Status) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.updateManyErr != nil {
		return 0, t.s.updateManyErr
	}
	var n int64
	for id := range t.s.bids {
		b, _ := t.bidView(id)
		if b.GigID != gigID || b.ID == excludeID || b.Status != where {
			continue
		}
		b.Status = next
		t.bidWrites[id] = b
		n++
	}
	return n, nil
}

func (t *memTx) UpdateGigStatus(_ context.Context, id string, next, expected gig.Status) (gig.Gig, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	g, ok := t.gigView(id)
	if !ok {
		return gig.Gig{}, gig.ErrNotFound
	}
	if g.Status != expected {
		return gig.Gig{}, gig.ErrStatusMismatch
	}
	g.Status = next
	t.gigWrites[id] = g
	return g, nil
}

func (t *memTx) EnqueueOutbox(_ context.Context, topic string, payload map[string]any) error {
	t.outbox = append(t.outbox, outboxRow{topic: topic, payload: payload})
	return nil
}

func (t *memTx) Commit(context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return errors.New("memstore: tx already closed")
	}
	if t.s.commitFailures > 0 {
		t.s.commitFailures--
		return fmt.Errorf("memstore: commit: %w", ErrTransient)
	}
	for id, v := range t.readGigs {
		if t.s.versions[id] != v {
			return fmt.Errorf("memstore: gig %s changed concurrently: %w", id, ErrTransient)
		}
	}
	for id, g := range t.gigWrites {
		t.s.gigs[id] = g
		t.s.versions[id]++
	}
	for id, b := range t.bidWrites {
		t.s.bids[id] = b
	}
	t.s.outbox = append(t.s.outbox, t.outbox...)
	t.s.commits++
	t.done = true
	return nil
}

func (t *memTx) Abort(context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.s.aborts++
	return nil
}
