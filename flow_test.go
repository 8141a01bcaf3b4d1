package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

func anyTextContains(texts []string, substr string) bool {
	for _, text := range texts {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// Registration wizard: /start → name → city → photo → interests.
func TestRegistrationScenario(t *testing.T) {
	repo := newTestRepo(t)
	bot := &fakeBot{}
	sessions := NewSessionManager()

	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, "/start")))
	if !anyTextContains(bot.texts(), "Як вас звати") {
		t.Fatalf("no name prompt, got %v", bot.texts())
	}

	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, "Alice")))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, "Kyiv")))

	// Text at the photo step is refused.
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, "no photo")))
	if user, _ := repo.GetUser(1); user != nil {
		t.Fatal("profile saved before wizard finished")
	}

	dispatchUpdate(bot, repo, sessions, messageUpdate(photoMessage(1, "photo-file-1")))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, "hiking, chess")))

	user, err := repo.GetUser(1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user == nil {
		t.Fatal("profile not persisted")
	}
	if user.Name != "Alice" || user.City != "Kyiv" || user.Interests != "hiking, chess" || user.Photo != "photo-file-1" {
		t.Errorf("profile = %+v", user)
	}
	if !anyTextContains(bot.texts(), "Профіль збережено") {
		t.Error("no confirmation after registration")
	}
}

// Publish wizard with calendar day + clock, then a keyword search by
// another user returning the card with the join button.
func TestPublishAndSearchScenario(t *testing.T) {
	repo := newTestRepo(t)
	bot := &fakeBot{}
	sessions := NewSessionManager()
	seedUser(t, repo, 10, "Alice", "Kyiv", "chess")

	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, BtnCreateEvent)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, "Chess meetup")))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, "Casual play in the park")))
	dispatchUpdate(bot, repo, sessions, callbackUpdate(10, "cal:date:2025-10-10"))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, "19:30")))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, BtnSkipLocation)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, "4")))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, "3")))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, BtnPublish)))

	var events []Event
	if err := repo.db.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Title != "Chess meetup" || ev.Status != EventActive {
		t.Errorf("event = %+v", ev)
	}
	if ev.Capacity != 4 || ev.NeededCount != 3 {
		t.Errorf("seats = %d/%d, want 3/4", ev.NeededCount, ev.Capacity)
	}
	if ev.CreatorName != "Alice" {
		t.Errorf("creator snapshot = %q", ev.CreatorName)
	}
	want := time.Date(2025, 10, 10, 19, 30, 0, 0, time.UTC)
	if ev.Date == nil || !ev.Date.Equal(want) {
		t.Errorf("date = %v, want %v", ev.Date, want)
	}

	// S3: keyword search from another user.
	seedUser(t, repo, 20, "Bob", "Kyiv", "")
	bot.sent = nil
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(20, BtnFindEvent)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(20, BtnSearchWord)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(20, "chess")))

	var card *tgbotapi.MessageConfig
	for _, m := range bot.messagesTo(20) {
		if strings.Contains(m.Text, "Chess meetup") {
			card = &m
			break
		}
	}
	if card == nil {
		t.Fatalf("no card with the event, got %v", bot.texts())
	}
	markup, ok := card.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatal("card has no inline keyboard")
	}
	joinData := fmt.Sprintf("join:%d", ev.ID)
	if *markup.InlineKeyboard[0][0].CallbackData != joinData {
		t.Errorf("join button = %q, want %q", *markup.InlineKeyboard[0][0].CallbackData, joinData)
	}
}

// Join, approve, relay both ways, manual stop and lazy expiry.
func TestJoinRelayStopExpiryScenario(t *testing.T) {
	repo := newTestRepo(t)
	bot := &fakeBot{}
	sessions := NewSessionManager()
	seedUser(t, repo, 10, "Alice", "Kyiv", "chess")
	seedUser(t, repo, 20, "Bob", "Lviv", "chess")
	ev := seedEvent(t, repo, Event{UserID: 10, CreatorName: "Alice", Title: "Chess meetup", Capacity: 4, NeededCount: 3})

	// S4: seeker presses the join button.
	dispatchUpdate(bot, repo, sessions, callbackUpdate(20, fmt.Sprintf("join:%d", ev.ID)))

	var req JoinRequest
	if err := repo.db.Where("event_id = ? AND seeker_id = ?", ev.ID, 20).First(&req).Error; err != nil {
		t.Fatalf("request not created: %v", err)
	}
	if req.Status != RequestPending {
		t.Errorf("request status = %q, want pending", req.Status)
	}
	organizerMsgs := bot.messagesTo(10)
	if len(organizerMsgs) == 0 || !strings.Contains(organizerMsgs[0].Text, "Bob") {
		t.Fatalf("organizer did not get the seeker profile: %v", bot.texts())
	}
	if _, ok := organizerMsgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatal("organizer notification has no approve/reject buttons")
	}

	// Organizer approves.
	dispatchUpdate(bot, repo, sessions, callbackUpdate(10, fmt.Sprintf("approve:%d", req.ID)))

	reread, _ := repo.GetRequest(req.ID)
	if reread.Status != RequestApproved {
		t.Fatalf("request status = %q, want approved", reread.Status)
	}
	evAfter, _ := repo.GetEvent(ev.ID)
	if evAfter.NeededCount != 2 {
		t.Errorf("needed_count = %d, want 2", evAfter.NeededCount)
	}
	conv, _ := repo.ActiveConversationFor(20)
	if conv == nil {
		t.Fatal("no conversation opened")
	}
	left := time.Until(conv.ExpiresAt)
	if left < ConversationTTL-time.Minute || left > ConversationTTL {
		t.Errorf("expiry %v from now, want about %v", left, ConversationTTL)
	}
	if !anyTextContains(bot.texts(), "схвалено") {
		t.Error("no approval notifications")
	}

	// S5: relay both directions.
	bot.sent = nil
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(20, "coming!")))
	relayed := bot.messagesTo(10)
	if len(relayed) != 1 || relayed[0].Text != "💬 Bob: coming!" {
		t.Fatalf("organizer relay = %v", bot.texts())
	}

	bot.sent = nil
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(10, "great")))
	relayed = bot.messagesTo(20)
	if len(relayed) != 1 || relayed[0].Text != "💬 Alice: great" {
		t.Fatalf("seeker relay = %v", bot.texts())
	}

	// Seeker stops the chat; the organizer is told.
	bot.sent = nil
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(20, "/stopchat")))
	var closed Conversation
	repo.db.First(&closed, conv.ID)
	if closed.Status != ConversationClosed {
		t.Errorf("conversation status = %q, want closed", closed.Status)
	}
	if !anyTextContains(bot.texts(), "Співрозмовник завершив чат") {
		t.Errorf("organizer not notified: %v", bot.texts())
	}

	// Stop again: idempotent.
	bot.sent = nil
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(20, "/stopchat")))
	if !anyTextContains(bot.texts(), "немає активного чату") {
		t.Errorf("no idempotent reply: %v", bot.texts())
	}

	// S6: a second approval opens a new conversation; simulate 31 minutes
	// passing and check the first touch closes it without relaying.
	req2, _, _ := repo.CreateRequest(ev.ID, 20)
	if result, _ := repo.ApproveRequest(req2.ID, 10); result.Code != DecisionAlreadyApproved {
		// Same seeker cannot re-request; use a third user instead.
		t.Fatalf("unexpected duplicate approval path")
	}
	seedUser(t, repo, 30, "Carol", "Kyiv", "")
	req3, _, _ := repo.CreateRequest(ev.ID, 30)
	if result, _ := repo.ApproveRequest(req3.ID, 10); result.Code != DecisionOK {
		t.Fatalf("approve for Carol failed: %v", result.Code)
	}
	conv3, _ := repo.ActiveConversationFor(30)
	stale := time.Now().UTC().Add(-time.Minute)
	if err := repo.db.Model(&Conversation{}).Where("id = ?", conv3.ID).Update("expires_at", stale).Error; err != nil {
		t.Fatalf("backdate expiry: %v", err)
	}

	bot.sent = nil
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(30, "anyone there?")))
	if len(bot.messagesTo(10)) != 0 {
		t.Error("expired conversation still relayed")
	}
	if !anyTextContains(bot.texts(), "час вийшов") {
		t.Errorf("no timeout notice: %v", bot.texts())
	}
	var expired Conversation
	repo.db.First(&expired, conv3.ID)
	if expired.Status != ConversationExpired {
		t.Errorf("conversation status = %q, want expired", expired.Status)
	}
}

// The photo send falls back to a plain text card when the platform
// rejects the photo.
func TestCardPhotoFallback(t *testing.T) {
	bot := &fakeBot{failPhoto: true}
	card := EventCard{Event: Event{ID: 7, Title: "Chess", Photo: "broken-file", Capacity: 2, NeededCount: 1}, OrganizerName: "Alice"}

	SendEventCard(bot, 42, card)

	msgs := bot.messagesTo(42)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 text fallback", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "Chess") {
		t.Errorf("fallback text = %q", msgs[0].Text)
	}
}

func TestFormatEventCardTruncatesDescription(t *testing.T) {
	long := strings.Repeat("а", 400)
	card := EventCard{Event: Event{ID: 1, Title: "T", Description: long, Capacity: 2, NeededCount: 1}}
	text := FormatEventCard(card)
	if strings.Contains(text, long) {
		t.Error("description not truncated")
	}
	if !strings.Contains(text, strings.Repeat("а", 300)+"…") {
		t.Error("no ellipsis after truncation")
	}
	if !strings.Contains(text, "🗓 —") || !strings.Contains(text, "📍 —") {
		t.Error("missing placeholders for empty date/location")
	}
}

// The radius step soft-defaults to 5 km on unparsable input.
func TestGeoSearchRadiusDefault(t *testing.T) {
	repo := newTestRepo(t)
	bot := &fakeBot{}
	sessions := NewSessionManager()
	seedUser(t, repo, 1, "Alice", "Kyiv", "")

	lat, lon := 50.4601, 30.5234 // ~1.1 km from the search point
	farLat, farLon := 51.0, 30.5234
	seedEvent(t, repo, Event{UserID: 1, Title: "Near park run", LocationLat: &lat, LocationLon: &lon, Capacity: 5, NeededCount: 4})
	seedEvent(t, repo, Event{UserID: 1, Title: "Far away", LocationLat: &farLat, LocationLon: &farLon, Capacity: 5, NeededCount: 4})

	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, BtnFindEvent)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, BtnSearchNear)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(locationMessage(1, 50.4501, 30.5234)))
	dispatchUpdate(bot, repo, sessions, messageUpdate(textMessage(1, "quite close please")))

	texts := bot.texts()
	if !anyTextContains(texts, "Near park run") {
		t.Errorf("nearby event not found with default radius: %v", texts)
	}
	if anyTextContains(texts, "Far away") {
		t.Errorf("distant event leaked into 5 km default: %v", texts)
	}
}
