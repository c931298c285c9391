package gateway

import "sync"

// PresenceTable is the authoritative record of which users currently hold
// an open realtime connection. A user has at most one entry; a reconnect
// overwrites the previous mapping without closing the old connection.
//
// The gateway run loop is the only writer, but reads come from HTTP
// handler goroutines, so access is guarded by a mutex.
type PresenceTable struct {
	mu      sync.Mutex
	entries map[int]string // user id -> connection id
}

func NewPresenceTable() *PresenceTable {
	return &PresenceTable{
		entries: make(map[int]string),
	}
}

// SetOnline records connId as the user's live connection, replacing any
// previous entry. It reports whether an entry was already present.
func (p *PresenceTable) SetOnline(userId int, connId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, replaced := p.entries[userId]
	p.entries[userId] = connId
	return replaced
}

// SetOffline removes the entry holding connId and returns the user id it
// mapped to. It is a no-op for unknown connections, including stale
// connections whose mapping was overwritten by a reconnect.
func (p *PresenceTable) SetOffline(connId string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for userId, id := range p.entries {
		if id == connId {
			delete(p.entries, userId)
			return userId, true
		}
	}

	return 0, false
}

func (p *PresenceTable) IsOnline(userId int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.entries[userId]
	return ok
}

// Drop removes the user's entry regardless of connection, returning the
// connection id it held. Used on explicit logout.
func (p *PresenceTable) Drop(userId int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	connId, ok := p.entries[userId]
	if ok {
		delete(p.entries, userId)
	}
	return connId, ok
}

func (p *PresenceTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.entries)
}
