package main

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DecisionCode is the business outcome of an organizer decision.
type DecisionCode int

const (
	DecisionOK DecisionCode = iota
	DecisionNotFound
	DecisionForbidden
	DecisionAlreadyApproved
	DecisionAlreadyRejected
	DecisionNoSeats
)

// ApproveResult carries the rows touched by a successful approval so the
// caller can notify both parties without re-reading.
type ApproveResult struct {
	Code         DecisionCode
	Request      *JoinRequest
	Event        *Event
	Conversation *Conversation
}

// RejectResult is the outcome of a rejection.
type RejectResult struct {
	Code    DecisionCode
	Request *JoinRequest
	Event   *Event
}

// Repository defines the interface for database operations
type Repository interface {
	Migrate() error
	GetUser(telegramID int64) (*User, error)
	UpsertUser(user User) error
	InsertEvent(ev *Event) error
	GetEvent(id int64) (*Event, error)
	EventsByOwner(telegramID int64) ([]Event, error)
	FindEventsByKeyword(keyword string, limit int) ([]EventCard, error)
	FindEventsNear(lat, lon, radiusKm float64, limit int) ([]EventCard, error)
	FindEventsByInterests(telegramID int64, limit int) ([]EventCard, error)
	CreateRequest(eventID, seekerID int64) (req *JoinRequest, created bool, err error)
	GetRequest(id int64) (*JoinRequest, error)
	ApproveRequest(reqID, approverID int64) (ApproveResult, error)
	RejectRequest(reqID, rejectorID int64) (RejectResult, error)
	ActiveConversationFor(userID int64) (*Conversation, error)
	CloseConversation(id int64, reason string) error
	DBInfo() (string, error)
}

// GormRepository implements the Repository interface
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GormRepository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the schema for all entities.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(&User{}, &Event{}, &JoinRequest{}, &Conversation{})
}

// locked adds a row-level lock on postgres. sqlite (used in tests) has no
// FOR UPDATE; its writers are serialized at the database level instead.
func (r *GormRepository) locked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// GetUser returns the profile for a Telegram id, or nil if none exists.
func (r *GormRepository) GetUser(telegramID int64) (*User, error) {
	var user User
	err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpsertUser inserts the profile or overwrites it for an existing
// telegram_id.
func (r *GormRepository) UpsertUser(user User) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phone", "name", "city", "photo", "interests",
		}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// InsertEvent publishes a new event and fills in its id and created_at.
func (r *GormRepository) InsertEvent(ev *Event) error {
	ev.Status = EventActive
	ev.CreatedAt = time.Now().UTC()
	if err := r.db.Create(ev).Error; err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns an event by id, or nil if none exists.
func (r *GormRepository) GetEvent(id int64) (*Event, error) {
	var ev Event
	err := r.db.First(&ev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

// EventsByOwner lists the events published by one user, newest first.
func (r *GormRepository) EventsByOwner(telegramID int64) ([]Event, error) {
	var events []Event
	err := r.db.Where("user_id = ?", telegramID).Order("id DESC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("events by owner: %w", err)
	}
	return events, nil
}

const cardSelect = `events.*,
	u.name AS organizer_name,
	u.interests AS organizer_interests,
	(SELECT COUNT(*) FROM events e2 WHERE e2.user_id = events.user_id) AS organizer_event_count`

func (r *GormRepository) cardQuery() *gorm.DB {
	return r.db.Model(&Event{}).
		Select(cardSelect).
		Joins("LEFT JOIN users u ON u.telegram_id = events.user_id").
		Where("events.status = ?", EventActive)
}

// FindEventsByKeyword matches the keyword against title or description of
// active events, case-insensitively. Events without a date sort last.
func (r *GormRepository) FindEventsByKeyword(keyword string, limit int) ([]EventCard, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
	var cards []EventCard
	err := r.cardQuery().
		Where("(LOWER(events.title) LIKE ? OR LOWER(events.description) LIKE ?)", pattern, pattern).
		Order("events.date IS NULL, events.date ASC, events.id DESC").
		Limit(limit).
		Scan(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return cards, nil
}

// haversineKm is the great-circle distance between two points, earth
// radius 6371 km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// FindEventsNear returns active events with coordinates within radiusKm of
// the given point, closest first. The distance is computed here rather
// than in SQL so the query stays portable across dialects.
func (r *GormRepository) FindEventsNear(lat, lon, radiusKm float64, limit int) ([]EventCard, error) {
	var cards []EventCard
	err := r.cardQuery().
		Where("events.location_lat IS NOT NULL AND events.location_lon IS NOT NULL").
		Scan(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("proximity search: %w", err)
	}

	type scored struct {
		card EventCard
		dist float64
	}
	var within []scored
	for _, c := range cards {
		d := haversineKm(lat, lon, *c.LocationLat, *c.LocationLon)
		if d <= radiusKm {
			within = append(within, scored{c, d})
		}
	}
	sort.Slice(within, func(i, j int) bool { return within[i].dist < within[j].dist })
	if len(within) > limit {
		within = within[:limit]
	}
	result := make([]EventCard, 0, len(within))
	for _, s := range within {
		result = append(result, s.card)
	}
	return result, nil
}

// FindEventsByInterests matches any of the user's comma-separated interest
// tokens against title or description of active events.
func (r *GormRepository) FindEventsByInterests(telegramID int64, limit int) ([]EventCard, error) {
	user, err := r.GetUser(telegramID)
	if err != nil {
		return nil, err
	}
	if user == nil || strings.TrimSpace(user.Interests) == "" {
		return nil, nil
	}

	var conds []string
	var args []interface{}
	for _, token := range strings.Split(user.Interests, ",") {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		pattern := "%" + token + "%"
		conds = append(conds, "(LOWER(events.title) LIKE ? OR LOWER(events.description) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var cards []EventCard
	err = r.cardQuery().
		Where(strings.Join(conds, " OR "), args...).
		Order("events.date IS NULL, events.date ASC, events.id DESC").
		Limit(limit).
		Scan(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("interests search: %w", err)
	}
	return cards, nil
}

// CreateRequest records a seeker's application. If the seeker already has
// a request for the event — including one inserted by a concurrent tap —
// the existing row is returned and created is false.
func (r *GormRepository) CreateRequest(eventID, seekerID int64) (*JoinRequest, bool, error) {
	var existing JoinRequest
	err := r.db.Where("event_id = ? AND seeker_id = ?", eventID, seekerID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	req := JoinRequest{
		EventID:   eventID,
		SeekerID:  seekerID,
		Status:    RequestPending,
		CreatedAt: time.Now().UTC(),
	}
	err = r.db.Create(&req).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race against a duplicate tap; surface the winner.
		if err := r.db.Where("event_id = ? AND seeker_id = ?", eventID, seekerID).First(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("create request: %w", err)
		}
		return &existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	return &req, true, nil
}

// GetRequest returns a join request by id, or nil if none exists.
func (r *GormRepository) GetRequest(id int64) (*JoinRequest, error) {
	var req JoinRequest
	err := r.db.First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &req, nil
}

// ApproveRequest performs the organizer's approval inside one transaction:
// the request and event rows are locked, the request turns approved, the
// event loses one seat and a conversation opens for ConversationTTL.
// Concurrent approvals on the last seat are serialized by the lock; the
// loser sees needed_count = 0 and gets DecisionNoSeats.
func (r *GormRepository) ApproveRequest(reqID, approverID int64) (ApproveResult, error) {
	result := ApproveResult{Code: DecisionNotFound}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var req JoinRequest
		if err := r.locked(tx).First(&req, reqID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Code = DecisionNotFound
				return nil
			}
			return err
		}
		var ev Event
		if err := r.locked(tx).First(&ev, req.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Code = DecisionNotFound
				return nil
			}
			return err
		}
		result.Request = &req
		result.Event = &ev

		switch {
		case ev.UserID != approverID:
			result.Code = DecisionForbidden
			return nil
		case req.Status == RequestApproved:
			result.Code = DecisionAlreadyApproved
			return nil
		case req.Status == RequestRejected:
			result.Code = DecisionAlreadyRejected
			return nil
		case ev.NeededCount <= 0:
			result.Code = DecisionNoSeats
			return nil
		}

		req.Status = RequestApproved
		if err := tx.Model(&JoinRequest{}).Where("id = ?", req.ID).
			Update("status", RequestApproved).Error; err != nil {
			return err
		}
		ev.NeededCount--
		if ev.NeededCount < 0 {
			ev.NeededCount = 0
		}
		if err := tx.Model(&Event{}).Where("id = ?", ev.ID).
			Update("needed_count", ev.NeededCount).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		conv := Conversation{
			EventID:     ev.ID,
			OrganizerID: ev.UserID,
			SeekerID:    req.SeekerID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(ConversationTTL),
			Status:      ConversationActive,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		result.Code = DecisionOK
		result.Conversation = &conv
		return nil
	})
	if err != nil {
		return ApproveResult{}, fmt.Errorf("approve request: %w", err)
	}
	return result, nil
}

// RejectRequest marks a pending request rejected. The caller must be the
// event owner; the check happens before any write.
func (r *GormRepository) RejectRequest(reqID, rejectorID int64) (RejectResult, error) {
	result := RejectResult{Code: DecisionNotFound}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var req JoinRequest
		if err := r.locked(tx).First(&req, reqID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Code = DecisionNotFound
				return nil
			}
			return err
		}
		var ev Event
		if err := r.locked(tx).First(&ev, req.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Code = DecisionNotFound
				return nil
			}
			return err
		}
		result.Request = &req
		result.Event = &ev

		switch {
		case ev.UserID != rejectorID:
			result.Code = DecisionForbidden
			return nil
		case req.Status == RequestApproved:
			result.Code = DecisionAlreadyApproved
			return nil
		case req.Status == RequestRejected:
			result.Code = DecisionAlreadyRejected
			return nil
		}

		req.Status = RequestRejected
		if err := tx.Model(&JoinRequest{}).Where("id = ?", req.ID).
			Update("status", RequestRejected).Error; err != nil {
			return err
		}
		result.Code = DecisionOK
		return nil
	})
	if err != nil {
		return RejectResult{}, fmt.Errorf("reject request: %w", err)
	}
	return result, nil
}

// ActiveConversationFor returns the user's most recent conversation with
// status active, without filtering on expiry: the relay closes an expired
// row on first touch, so it has to see it.
func (r *GormRepository) ActiveConversationFor(userID int64) (*Conversation, error) {
	var conv Conversation
	err := r.db.
		Where("status = ? AND (organizer_id = ? OR seeker_id = ?)", ConversationActive, userID, userID).
		Order("created_at DESC, id DESC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active conversation: %w", err)
	}
	return &conv, nil
}

// CloseConversation sets a conversation's terminal status ("expired" or
// "closed"). Closing an already-terminal conversation is a no-op.
func (r *GormRepository) CloseConversation(id int64, reason string) error {
	err := r.db.Model(&Conversation{}).
		Where("id = ? AND status = ?", id, ConversationActive).
		Update("status", reason).Error
	if err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	return nil
}

// DBInfo returns a short identity string for the connected database.
func (r *GormRepository) DBInfo() (string, error) {
	if r.db.Dialector.Name() == "postgres" {
		var info string
		err := r.db.Raw("SELECT current_database() || ' (' || version() || ')'").Scan(&info).Error
		if err != nil {
			return "", fmt.Errorf("db info: %w", err)
		}
		return info, nil
	}
	return r.db.Dialector.Name(), nil
}
