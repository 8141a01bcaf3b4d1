package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// BotUsername is the bot's own username, used for QR deep links.
var BotUsername string

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		log.Fatal(err)
	}
	BotUsername = bot.Self.UserName
	log.Printf("Authorized on account %s", bot.Self.UserName)

	db, err := gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal(err)
	}

	repo := NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		log.Fatal(err)
	}

	sessions := NewSessionManager()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := bot.GetUpdatesChan(u)
	if err != nil {
		log.Fatal(err)
	}

	for update := range updates {
		dispatchUpdate(bot, repo, sessions, update)
	}
}

// dispatchUpdate routes one incoming update: inline callbacks, then
// commands, then the relay short-circuit, then the FSM.
func dispatchUpdate(bot BotSender, repo Repository, sessions *SessionManager, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		handleCallbackQuery(bot, repo, sessions, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	msg := update.Message
	if msg.IsCommand() {
		handleCommand(bot, repo, sessions, msg)
		return
	}
	// An open relay chat consumes plain text before the FSM sees it.
	if msg.Text != "" && relayIfActive(bot, repo, msg) {
		return
	}
	handleDialog(bot, repo, sessions, msg)
}
