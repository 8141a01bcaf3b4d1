package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRepo opens a fresh sqlite database in a temp dir and migrates
// the schema.
func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "bot.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	repo := NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

// fakeBot records everything the handlers send.
type fakeBot struct {
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
	failPhoto bool // failPhoto makes photo sends fail, to exercise the text fallback.
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if _, ok := c.(tgbotapi.PhotoConfig); ok && f.failPhoto {
		return tgbotapi.Message{}, errors.New("photo rejected")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBot) AnswerCallbackQuery(cfg tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error) {
	f.callbacks = append(f.callbacks, cfg)
	return tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns all outgoing message texts and photo captions in order.
func (f *fakeBot) texts() []string {
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

// messagesTo returns outgoing plain messages addressed to one chat.
func (f *fakeBot) messagesTo(chatID int64) []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) lastCallbackText(t *testing.T) string {
	t.Helper()
	if len(f.callbacks) == 0 {
		t.Fatal("no callbacks answered")
	}
	return f.callbacks[len(f.callbacks)-1].Text
}

func textMessage(userID int, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Chat: &tgbotapi.Chat{ID: int64(userID)},
		Text: text,
	}
	// Telegram marks commands with a bot_command entity; IsCommand
	// relies on it.
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.Index(text, " "); i != -1 {
			length = i
		}
		msg.Entities = &[]tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return msg
}

func photoMessage(userID int, fileID string) *tgbotapi.Message {
	msg := textMessage(userID, "")
	msg.Photo = &[]tgbotapi.PhotoSize{{FileID: fileID}}
	return msg
}

func locationMessage(userID int, lat, lon float64) *tgbotapi.Message {
	msg := textMessage(userID, "")
	msg.Location = &tgbotapi.Location{Latitude: lat, Longitude: lon}
	return msg
}

func callbackUpdate(userID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: int64(userID)},
		},
		Data: data,
	}}
}

func messageUpdate(msg *tgbotapi.Message) tgbotapi.Update {
	return tgbotapi.Update{Message: msg}
}

// seedUser registers a profile directly through the repository.
func seedUser(t *testing.T, repo Repository, id int64, name, city, interests string) {
	t.Helper()
	err := repo.UpsertUser(User{
		TelegramID: id,
		Name:       name,
		City:       city,
		Interests:  interests,
	})
	if err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}
}

// seedEvent publishes an event directly through the repository.
func seedEvent(t *testing.T, repo Repository, ev Event) *Event {
	t.Helper()
	if err := repo.InsertEvent(&ev); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return &ev
}
