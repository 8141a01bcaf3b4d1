package main

import (
	"sync"
	"time"
)

// Step represents the current step of a user's dialog with the bot
type Step int

const (
	StepMenu Step = iota
	StepName
	StepCity
	StepPhoto
	StepInterests
	StepCreateEventTitle
	StepCreateEventDescription
	StepCreateEventDate
	StepCreateEventTime
	StepCreateEventLocation
	StepCreateEventLocationName
	StepCreateEventCapacity
	StepCreateEventNeeded
	StepCreateEventPhoto
	StepSearchMenu
	StepSearchKeywordWait
	StepSearchGeoWaitLocation
	StepSearchGeoWaitRadius
)

// Session is the per-user draft record for the wizards. It lives only in
// process memory; a restart drops everyone back to the menu.
type Session struct {
	Step Step

	// Registration draft.
	Name      string
	City      string
	Photo     string
	Interests string

	// Event draft.
	EventTitle       string
	EventDescription string
	PickedDate       string // PickedDate is the calendar day (YYYY-MM-DD) awaiting a clock value.
	EventDate        *time.Time
	EventLocation    string
	EventLat         *float64
	EventLon         *float64
	Capacity         int
	NeededCount      int
	EventPhoto       string
	CreatorName      string
	CreatorPhone     string

	// Search draft.
	SearchLat float64
	SearchLon float64
}

// SessionManager holds the sessions keyed by telegram id
type SessionManager struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
}

// NewSessionManager creates a new SessionManager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*Session),
	}
}

// Get returns the session for a user, creating a menu-state one lazily.
func (sm *SessionManager) Get(telegramID int64) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, exists := sm.sessions[telegramID]; exists {
		return s
	}
	s := &Session{Step: StepMenu}
	sm.sessions[telegramID] = s
	return s
}

// Reset clears a user's session back to the menu state.
func (sm *SessionManager) Reset(telegramID int64) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s := &Session{Step: StepMenu}
	sm.sessions[telegramID] = s
	return s
}
