// Package directory holds the session's user table: authoritative on the
// host, replicated on clients.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/1ureka/peerchat/internal/protocol"
)

// ErrUnknownUser is the cause of every InconsistencyError.
var ErrUnknownUser = errors.New("directory: unknown user")

// InconsistencyError reports an operation that referenced a user id the
// directory does not hold. It is a diagnostic; callers carry on.
type InconsistencyError struct {
	Op     string
	UserID uint16
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: user %d not found in records", e.Op, e.UserID)
}

func (e *InconsistencyError) Unwrap() error { return ErrUnknownUser }

// Roster is the display collaborator refreshed after every mutation.
type Roster interface {
	ClearUserList()
	ShowUserLine(text string, isLocal bool)
}

// Flusher may be implemented by a Roster that renders the listing in one go
// after the last ShowUserLine of a refresh.
type Flusher interface {
	Flush()
}

// Directory maps user ids to records. Every method holds the same lock.
type Directory struct {
	mu       sync.Mutex
	users    map[uint16]protocol.UserRecord
	local    uint16
	hasLocal bool
	roster   Roster
}

// New returns an empty Directory. roster may be nil.
func New(roster Roster) *Directory {
	return &Directory{
		users:  make(map[uint16]protocol.UserRecord),
		roster: roster,
	}
}

// Upsert inserts or replaces a record. When isLocal is set the local-user
// reference is pointed at it.
func (d *Directory) Upsert(rec protocol.UserRecord, isLocal bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[rec.ID] = rec
	if isLocal {
		d.local = rec.ID
		d.hasLocal = true
	}
	d.refresh()
}

// Remove deletes a record and returns it. Removing the local user clears the
// local reference.
func (d *Directory) Remove(id uint16) (protocol.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.users[id]
	if !ok {
		return protocol.UserRecord{}, &InconsistencyError{Op: "remove", UserID: id}
	}

	delete(d.users, id)
	if d.hasLocal && d.local == id {
		d.hasLocal = false
	}
	d.refresh()
	return rec, nil
}

// Clear drops every record. Used when a session ends.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	clear(d.users)
	d.hasLocal = false
	d.refresh()
}

func (d *Directory) Contains(id uint16) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.users[id]
	return ok
}

func (d *Directory) Lookup(id uint16) (protocol.UserRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.users[id]
	return rec, ok
}

// Local returns the local participant's record, if one is marked.
func (d *Directory) Local() (protocol.UserRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasLocal {
		return protocol.UserRecord{}, false
	}
	return d.users[d.local], true
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}

// Snapshot returns every record ordered by id.
func (d *Directory) Snapshot() []protocol.UserRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sorted()
}

func (d *Directory) sorted() []protocol.UserRecord {
	out := make([]protocol.UserRecord, 0, len(d.users))
	for _, rec := range d.users {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// refresh redraws the roster. Called with d.mu held, so the Roster must not
// call back into the Directory.
func (d *Directory) refresh() {
	if d.roster == nil {
		return
	}

	d.roster.ClearUserList()
	for _, rec := range d.sorted() {
		d.roster.ShowUserLine(rec.Name, d.hasLocal && rec.ID == d.local)
	}
	if f, ok := d.roster.(Flusher); ok {
		f.Flush()
	}
}
