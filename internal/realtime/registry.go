package realtime

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	userRoomPrefix = "user:"
	itemRoomPrefix = "item:"

	// eventBuffer sizes each connection's outbound channel. A slow consumer
	// drops frames instead of blocking the dispatcher.
	eventBuffer = 64
)

// UserRoom names the per-recipient room every connection joins on connect.
func UserRoom(userID uuid.UUID) string {
	return userRoomPrefix + userID.String()
}

// ItemRoom names the per-item feed room.
func ItemRoom(itemID uuid.UUID) string {
	return itemRoomPrefix + itemID.String()
}

// ValidRoom reports whether the name is a well-formed user or item room.
func ValidRoom(room string) bool {
	for _, prefix := range []string{userRoomPrefix, itemRoomPrefix} {
		if rest, ok := strings.CutPrefix(room, prefix); ok {
			_, err := uuid.Parse(rest)
			return err == nil
		}
	}
	return false
}

// Frame is one encoded event ready for the transport.
type Frame struct {
	Name string
	Data []byte
}

// Connection is one live subscriber. Created by Register, destroyed by
// Unregister; never reused.
type Connection struct {
	ID     string
	UserID uuid.UUID

	mu     sync.Mutex
	closed bool
	events chan Frame
}

// Events exposes the outbound frame stream for the transport loop.
func (c *Connection) Events() <-chan Frame {
	return c.events
}

// push queues a frame without blocking. Returns false when the buffer is
// full or the connection is already unregistered. The closed flag and the
// send share one mutex so a push can never race the close.
func (c *Connection) push(frame Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the frame stream exactly once.
func (c *Connection) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

// Registry tracks which live connections belong to which rooms. It is
// explicitly constructed and injected; there is no process-global instance.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	rooms       map[string]map[string]*Connection
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]*Connection),
	}
}

// Register creates a connection for the user and joins their personal room.
func (r *Registry) Register(userID uuid.UUID) *Connection {
	conn := &Connection{
		ID:     fmt.Sprintf("%s_%d", userID, time.Now().UnixNano()),
		UserID: userID,
		events: make(chan Frame, eventBuffer),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID] = conn
	r.joinLocked(conn, UserRoom(userID))
	return conn
}

// Unregister removes the connection from every room and closes its stream.
// Safe to call twice; the second call is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connID]
	if !ok {
		return
	}
	delete(r.connections, connID)
	for room, members := range r.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	conn.shutdown()
}

// Get returns the connection for the id, if still live.
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[connID]
	return conn, ok
}

// Join subscribes an existing connection to a room.
func (r *Registry) Join(connID, room string) error {
	if !ValidRoom(room) {
		return fmt.Errorf("invalid room %q", room)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connID]
	if !ok {
		return fmt.Errorf("unknown connection %q", connID)
	}
	r.joinLocked(conn, room)
	return nil
}

// Leave unsubscribes the connection from a room. Unknown rooms are a no-op.
func (r *Registry) Leave(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Resolve returns the live connections subscribed to the room. An unknown
// room resolves to the empty set, never an error.
func (r *Registry) Resolve(room string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

func (r *Registry) joinLocked(conn *Connection, room string) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Connection)
		r.rooms[room] = members
	}
	members[conn.ID] = conn
}
