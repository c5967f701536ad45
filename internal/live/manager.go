// Package live provides WebSocket-based submission sessions: each connection
// owns one orchestrator and receives every state transition as it happens.
package live

import (
	"log/slog"
	"sync"

	"github.com/ashureev/japa-advisor/internal/metrics"
	"github.com/coder/websocket"
)

// SessionManager tracks active WebSocket connections per client and tab.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
	count  int
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a client and session.
func (m *SessionManager) GetActive(clientID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[clientID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Count returns the number of registered connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Register adds a connection for a client/session. A previous connection
// for the same tab is closed.
func (m *SessionManager) Register(clientID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[clientID]; !exists {
		m.active[clientID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[clientID][sessionID]; exists {
		if existing == conn {
			return
		}
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	} else {
		m.count++
	}

	m.active[clientID][sessionID] = conn
	metrics.LiveSessions.Set(float64(m.count))
	slog.Info("Live session registered", "client_id", clientID, "session_id", sessionID)
}

// Unregister removes a connection if it is still the current one for the tab.
func (m *SessionManager) Unregister(clientID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[clientID]
	if !ok {
		return
	}
	current, exists := sessions[sessionID]
	if !exists || current != conn {
		return
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(m.active, clientID)
	}
	m.count--
	metrics.LiveSessions.Set(float64(m.count))
	slog.Info("Live session unregistered", "client_id", clientID, "session_id", sessionID)
}

// CloseAll terminates every active session, used during shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for clientID, sessions := range m.active {
		for sid, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			slog.Info("Live session closed", "client_id", clientID, "session_id", sid)
		}
	}
	m.active = make(map[string]map[string]*websocket.Conn)
	m.count = 0
	metrics.LiveSessions.Set(0)
}
