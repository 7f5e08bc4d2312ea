package session

import (
	"sync"

	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/common/metrics"
)

// Store is the process-wide session registry. Sessions are handled
// concurrently, so creation, lookup and removal are guarded; each
// returned *State is then exclusively owned by its session's turns.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
	logger   logger.Logger
}

func NewStore(log logger.Logger) *Store {
	return &Store{
		sessions: make(map[string]*State),
		logger:   log.WithFields(map[string]interface{}{"component": "session_store"}),
	}
}

// GetOrCreate returns the session's state, creating it lazily on the
// first message for a session id.
func (st *Store) GetOrCreate(sessionID, businessID string) *State {
	st.mu.RLock()
	s, ok := st.sessions[sessionID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[sessionID]; ok {
		return s
	}
	s = newState(sessionID, businessID)
	st.sessions[sessionID] = s
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	st.logger.Info("created conversation", map[string]interface{}{
		"session_id":  sessionID,
		"business_id": businessID,
	})
	return s
}

// Get returns the session's state if it exists.
func (st *Store) Get(sessionID string) (*State, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	return s, ok
}

// Clear removes a session, for call or chat termination.
func (st *Store) Clear(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[sessionID]; ok {
		delete(st.sessions, sessionID)
		metrics.ActiveSessions.Set(float64(len(st.sessions)))
		st.logger.Info("cleared conversation", map[string]interface{}{
			"session_id": sessionID,
		})
	}
}

// Len reports the number of active sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ActiveTickets returns the finalized kitchen tickets of sessions still
// in the ledger, keyed by session id.
func (st *Store) ActiveTickets() map[string]*Ticket {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[string]*Ticket)
	for id, s := range st.sessions {
		if s.KitchenTicket != nil {
			out[id] = s.KitchenTicket
		}
	}
	return out
}
