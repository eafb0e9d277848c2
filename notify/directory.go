package notify

import (
	"context"
	"sync"
)

// Handle is a live, push-capable connection owned by one user.
// Implementations must be comparable; the directory keys on handle identity.
type Handle interface {
	ID() string
	Send(ctx context.Context, ev Event) error
}

// Directory maps a user to at most one connected handle. The most recent
// Register for a user wins.
type Directory struct {
	mu       sync.Mutex
	byUser   map[string]Handle
	byHandle map[Handle]string
}

func NewDirectory() *Directory {
	return &Directory{
		byUser:   make(map[string]Handle),
		byHandle: make(map[Handle]string),
	}
}

func (d *Directory) Register(userID string, h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.byUser[userID]; ok {
		delete(d.byHandle, prev)
	}
	// A handle belongs to a single user; re-registering it moves it.
	if owner, ok := d.byHandle[h]; ok && owner != userID {
		delete(d.byUser, owner)
	}
	d.byUser[userID] = h
	d.byHandle[h] = userID
}

// Unregister drops the entry pointing at h. A handle that was already
// replaced by a newer connection is ignored.
func (d *Directory) Unregister(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID, ok := d.byHandle[h]
	if !ok {
		return
	}
	delete(d.byHandle, h)
	if d.byUser[userID] == h {
		delete(d.byUser, userID)
	}
}

func (d *Directory) Lookup(userID string) (Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.byUser[userID]
	return h, ok
}

// Size reports the number of users with a live handle.
func (d *Directory) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byUser)
}
