package service

import (
	"sync"

	"solaudit/internal/models"
)

// HistoryStore is the in-memory view of each user's audit history and
// currently selected audit. All mutations go through typed actions so every
// state transition is explicit and serialized under one lock.
type HistoryStore struct {
	mu    sync.Mutex
	users map[uint]*userHistory
}

type userHistory struct {
	audits   []*models.AuditResult // newest first
	current  *models.AuditResult
	hydrated bool
}

// historyAction is one atomic transition of a user's history state
type historyAction interface {
	apply(h *userHistory)
}

// createAction prepends a new audit and makes it the current one
type createAction struct {
	audit *models.AuditResult
}

func (a createAction) apply(h *userHistory) {
	h.audits = append([]*models.AuditResult{a.audit}, h.audits...)
	h.current = a.audit
}

// deleteAction removes an audit by ID; if it was the current audit the
// selection is cleared rather than silently moved.
type deleteAction struct {
	id uint
}

func (a deleteAction) apply(h *userHistory) {
	kept := h.audits[:0]
	for _, audit := range h.audits {
		if audit.ID != a.id {
			kept = append(kept, audit)
		}
	}
	h.audits = kept
	if h.current != nil && h.current.ID == a.id {
		h.current = nil
	}
}

// setCurrentAction selects an audit already present in the history
type setCurrentAction struct {
	id uint
}

func (a setCurrentAction) apply(h *userHistory) {
	for _, audit := range h.audits {
		if audit.ID == a.id {
			h.current = audit
			return
		}
	}
}

// hydrateAction replaces the full list from persistent storage. The current
// selection survives only if the audit is still present.
type hydrateAction struct {
	audits []*models.AuditResult
}

func (a hydrateAction) apply(h *userHistory) {
	h.audits = a.audits
	h.hydrated = true
	if h.current == nil {
		return
	}
	for _, audit := range h.audits {
		if audit.ID == h.current.ID {
			return
		}
	}
	h.current = nil
}

// NewHistoryStore creates an empty history store
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{users: make(map[uint]*userHistory)}
}

func (s *HistoryStore) dispatch(userID uint, action historyAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.users[userID]
	if !ok {
		h = &userHistory{}
		s.users[userID] = h
	}
	action.apply(h)
}

// Create records a freshly persisted audit as the newest entry and selects it
func (s *HistoryStore) Create(userID uint, audit *models.AuditResult) {
	s.dispatch(userID, createAction{audit: audit})
}

// Delete removes an audit from the history, clearing the selection if it was
// the current one.
func (s *HistoryStore) Delete(userID, auditID uint) {
	s.dispatch(userID, deleteAction{id: auditID})
}

// SetCurrent selects an audit from the history. Unknown IDs leave the
// selection unchanged.
func (s *HistoryStore) SetCurrent(userID, auditID uint) {
	s.dispatch(userID, setCurrentAction{id: auditID})
}

// Hydrate loads the persisted audit list into the store
func (s *HistoryStore) Hydrate(userID uint, audits []*models.AuditResult) {
	s.dispatch(userID, hydrateAction{audits: audits})
}

// Hydrated reports whether the user's history has been loaded from storage
func (s *HistoryStore) Hydrated(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[userID]
	return ok && h.hydrated
}

// List returns the user's audits, newest first
func (s *HistoryStore) List(userID uint) []*models.AuditResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[userID]
	if !ok {
		return nil
	}
	out := make([]*models.AuditResult, len(h.audits))
	copy(out, h.audits)
	return out
}

// Current returns the user's selected audit, or nil when none is selected
func (s *HistoryStore) Current(userID uint) *models.AuditResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[userID]
	if !ok {
		return nil
	}
	return h.current
}
