package main

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// relayIfActive intercepts a text message from a user with an open
// conversation and forwards it to the other participant. Returns true if
// the message was consumed (forwarded or the conversation was closed) and
// must not reach the FSM. Expiry is checked lazily here: the first touch
// of an expired conversation closes it.
func relayIfActive(bot BotSender, repo Repository, msg *tgbotapi.Message) bool {
	userID := int64(msg.From.ID)

	conv, err := repo.ActiveConversationFor(userID)
	if err != nil {
		log.Printf("relay lookup for user %d: %v", userID, err)
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return true
	}
	if conv == nil {
		return false
	}

	if !conv.ExpiresAt.After(time.Now().UTC()) {
		if err := repo.CloseConversation(conv.ID, ConversationExpired); err != nil {
			log.Printf("close expired conversation %d: %v", conv.ID, err)
		}
		sendMessage(bot, msg.Chat.ID, "⏰ Чат завершено (час вийшов)")
		return true
	}

	peerID := conv.OrganizerID
	if peerID == userID {
		peerID = conv.SeekerID
	}

	name := displayName(repo, msg)
	forward := tgbotapi.NewMessage(peerID, fmt.Sprintf("💬 %s: %s", name, msg.Text))
	if _, err := bot.Send(forward); err != nil {
		// Delivery failures are dropped, no retry.
		log.Printf("relay delivery to %d failed: %v", peerID, err)
	}
	return true
}

// handleStopChat terminates the caller's active conversation and notifies
// the other side. With no active conversation it just says so.
func handleStopChat(bot BotSender, repo Repository, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)

	conv, err := repo.ActiveConversationFor(userID)
	if err != nil {
		log.Printf("stopchat lookup for user %d: %v", userID, err)
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return
	}
	if conv == nil {
		sendMessage(bot, msg.Chat.ID, "У вас немає активного чату")
		return
	}

	if !conv.ExpiresAt.After(time.Now().UTC()) {
		if err := repo.CloseConversation(conv.ID, ConversationExpired); err != nil {
			log.Printf("close expired conversation %d: %v", conv.ID, err)
		}
		sendMessage(bot, msg.Chat.ID, "⏰ Чат уже завершився (час вийшов)")
		return
	}

	if err := repo.CloseConversation(conv.ID, ConversationClosed); err != nil {
		log.Printf("close conversation %d: %v", conv.ID, err)
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return
	}

	peerID := conv.OrganizerID
	if peerID == userID {
		peerID = conv.SeekerID
	}
	sendMessage(bot, peerID, "Співрозмовник завершив чат")
	sendMessage(bot, msg.Chat.ID, "Чат завершено")
}

// displayName prefers the stored profile name over the Telegram one.
func displayName(repo Repository, msg *tgbotapi.Message) string {
	if user, err := repo.GetUser(int64(msg.From.ID)); err == nil && user != nil && user.Name != "" {
		return user.Name
	}
	if msg.From.FirstName != "" {
		return msg.From.FirstName
	}
	return msg.From.UserName
}
