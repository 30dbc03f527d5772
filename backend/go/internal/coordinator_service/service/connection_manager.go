package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// Conn is one live agent connection. Send must not block: implementations
// enqueue the event on a bounded per-connection queue and return
// models.ErrDeliveryFailure when the queue is full or the connection is gone.
type Conn interface {
	ID() string
	Send(ev models.Event) error
	Close() error
}

// ConnectionManager tracks live connections, which agent each one carries,
// and the rooms each one has joined. Rooms are in memory only and vanish
// with the connection.
type ConnectionManager struct {
	mu       sync.RWMutex
	conns    map[string]Conn
	agentOf  map[string]string
	connOf   map[string]string
	rooms    map[string]map[string]struct{}
	memberOf map[string]map[string]struct{}
	log      *logger.Logger
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(log *logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		conns:    make(map[string]Conn),
		agentOf:  make(map[string]string),
		connOf:   make(map[string]string),
		rooms:    make(map[string]map[string]struct{}),
		memberOf: make(map[string]map[string]struct{}),
		log:      log.Component("connections"),
	}
}

// Add registers a new connection.
func (m *ConnectionManager) Add(c Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.ID()] = c
}

// Remove forgets a connection together with its agent binding and room memberships.
// It returns the agent the connection carried, if any. The connection itself is not closed.
func (m *ConnectionManager) Remove(connID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns, connID)
	for room := range m.memberOf[connID] {
		m.leaveLocked(connID, room)
	}
	delete(m.memberOf, connID)

	agentID, ok := m.agentOf[connID]
	if ok {
		delete(m.agentOf, connID)
		if m.connOf[agentID] == connID {
			delete(m.connOf, agentID)
		}
	}
	return agentID, ok
}

// Get returns a live connection.
func (m *ConnectionManager) Get(connID string) (Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conns[connID]
	return c, ok
}

// Bind records that connID now carries agentID, replacing any earlier binding on either side.
func (m *ConnectionManager) Bind(connID, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[connID]; !ok {
		return fmt.Errorf("%w: unknown connection %s", models.ErrInvalidArgument, connID)
	}
	if prev, ok := m.agentOf[connID]; ok && prev != agentID && m.connOf[prev] == connID {
		delete(m.connOf, prev)
	}
	if prevConn, ok := m.connOf[agentID]; ok && prevConn != connID {
		delete(m.agentOf, prevConn)
	}
	m.agentOf[connID] = agentID
	m.connOf[agentID] = connID
	return nil
}

// AgentFor returns the agent bound to connID.
func (m *ConnectionManager) AgentFor(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.agentOf[connID]
	return id, ok
}

// ConnForAgent returns the live connection carrying agentID.
func (m *ConnectionManager) ConnForAgent(agentID string) (Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	connID, ok := m.connOf[agentID]
	if !ok {
		return nil, false
	}
	c, ok := m.conns[connID]
	return c, ok
}

// Join adds connID to room.
func (m *ConnectionManager) Join(connID, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[connID]; !ok {
		return fmt.Errorf("%w: unknown connection %s", models.ErrInvalidArgument, connID)
	}
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]struct{})
	}
	m.rooms[room][connID] = struct{}{}
	if m.memberOf[connID] == nil {
		m.memberOf[connID] = make(map[string]struct{})
	}
	m.memberOf[connID][room] = struct{}{}
	return nil
}

// Leave removes connID from room. Leaving a room that was never joined is a no-op.
func (m *ConnectionManager) Leave(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(connID, room)
}

func (m *ConnectionManager) leaveLocked(connID, room string) {
	if members, ok := m.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	if rooms, ok := m.memberOf[connID]; ok {
		delete(rooms, room)
	}
}

// Rooms returns the rooms connID has joined, sorted.
func (m *ConnectionManager) Rooms(connID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.memberOf[connID]))
	for room := range m.memberOf[connID] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// All returns every live connection except exceptConnID, ordered by connection ID.
func (m *ConnectionManager) All(exceptConnID string) []Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Conn, 0, len(m.conns))
	for id, c := range m.conns {
		if id != exceptConnID {
			out = append(out, c)
		}
	}
	sortConns(out)
	return out
}

// CloseAll closes every live connection and returns how many there were.
// Each stays registered until its reader removes it.
func (m *ConnectionManager) CloseAll() int {
	conns := m.All("")
	for _, c := range conns {
		if err := c.Close(); err != nil {
			m.log.WithError(models.ErrorInfo{Message: err.Error()}).
				WithPayload(map[string]interface{}{"connection_id": c.ID()}).
				Warn("Failed to close connection")
		}
	}
	return len(conns)
}

// RoomMembers returns the members of every room whose name matches pattern,
// each connection at most once, except exceptConnID.
func (m *ConnectionManager) RoomMembers(pattern glob.Glob, exceptConnID string) []Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []Conn
	for room, members := range m.rooms {
		if !pattern.Match(room) {
			continue
		}
		for id := range members {
			if id == exceptConnID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			if c, ok := m.conns[id]; ok {
				seen[id] = struct{}{}
				out = append(out, c)
			}
		}
	}
	sortConns(out)
	return out
}

// Count returns the number of live connections.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Deliver sends ev to c. Failures are logged and reported as false, never returned.
func (m *ConnectionManager) Deliver(c Conn, ev models.Event) bool {
	if err := c.Send(ev); err != nil {
		m.log.WithError(models.ErrorInfo{Message: err.Error(), Type: "delivery_failure"}).
			WithPayload(map[string]interface{}{"connection_id": c.ID(), "event": ev.Type}).
			Warn("event delivery failed")
		return false
	}
	return true
}

// Broadcast delivers ev to every live connection except exceptConnID.
func (m *ConnectionManager) Broadcast(ev models.Event, exceptConnID string) int {
	delivered := 0
	for _, c := range m.All(exceptConnID) {
		if m.Deliver(c, ev) {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers ev to a single connection.
func (m *ConnectionManager) SendTo(connID string, ev models.Event) bool {
	c, ok := m.Get(connID)
	if !ok {
		return false
	}
	return m.Deliver(c, ev)
}

func sortConns(conns []Conn) {
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })
}
