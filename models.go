package main

import "time"

// Request and conversation statuses. Stored as plain strings so the rows
// stay readable in psql.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"

	EventActive = "active"

	ConversationActive  = "active"
	ConversationExpired = "expired"
	ConversationClosed  = "closed"
)

// ConversationTTL is how long a relay chat stays open after approval.
const ConversationTTL = 30 * time.Minute

// User is a registered profile, keyed by the Telegram user id.
type User struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	TelegramID int64  `gorm:"uniqueIndex;not null"` // TelegramID is the platform user id; chats with the bot share it.
	Phone      string
	Name       string
	City       string
	Photo      string // Photo is a Telegram file id, empty if none.
	Interests  string // Interests is the comma-joined free-text list.
}

// Event is a published event. Capacity is fixed at publication;
// NeededCount is the remaining free seats and only the join protocol
// decrements it.
type Event struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	UserID       int64 `gorm:"index;not null"` // UserID is the organizer's Telegram id.
	CreatorName  string
	CreatorPhone string
	Title        string `gorm:"not null"`
	Description  string
	Date         *time.Time
	Location     string
	LocationLat  *float64
	LocationLon  *float64
	Capacity     int
	NeededCount  int
	Status       string `gorm:"default:active"`
	Photo        string
	CreatedAt    time.Time
}

// JoinRequest is a seeker's application to an event. The composite unique
// index blocks the duplicate-tap race on creation.
type JoinRequest struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	EventID   int64  `gorm:"not null;uniqueIndex:idx_event_seeker"`
	SeekerID  int64  `gorm:"not null;uniqueIndex:idx_event_seeker"`
	Status    string `gorm:"default:pending"`
	CreatedAt time.Time
}

// Conversation is a time-boxed relay chat opened on approval.
// Active iff Status == active and ExpiresAt is in the future; the first
// touch after expiry closes it.
type Conversation struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	EventID     int64 `gorm:"not null"`
	OrganizerID int64 `gorm:"index;not null"`
	SeekerID    int64 `gorm:"index;not null"`
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Status      string `gorm:"default:active"`
}

// EventCard is one search result row: the event joined with organizer
// details for the card presenter.
type EventCard struct {
	Event
	OrganizerName       string
	OrganizerInterests  string
	OrganizerEventCount int64
}
