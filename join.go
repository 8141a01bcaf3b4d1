package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Inline callback data prefixes for the join protocol.
const (
	JoinPrefix    = "join:"
	ApprovePrefix = "approve:"
	RejectPrefix  = "reject:"
)

// requestJoin runs the seeker side of the join protocol: create a pending
// request (or surface the existing one) and send the organizer the
// seeker's profile with approve/reject buttons. Returns the text to show
// the seeker.
func requestJoin(bot BotSender, repo Repository, seekerID int64, eventID int64) string {
	seeker, err := repo.GetUser(seekerID)
	if err != nil {
		log.Printf("join: get seeker %d: %v", seekerID, err)
		return "❌ Помилка: " + err.Error()
	}
	if seeker == nil {
		return "Спочатку зареєструйтесь через /start"
	}

	ev, err := repo.GetEvent(eventID)
	if err != nil {
		log.Printf("join: get event %d: %v", eventID, err)
		return "❌ Помилка: " + err.Error()
	}
	if ev == nil {
		return "Подію не знайдено"
	}
	if ev.UserID == seekerID {
		return "Це ваша власна подія"
	}
	if ev.NeededCount <= 0 {
		return "Вільних місць уже немає"
	}

	req, created, err := repo.CreateRequest(eventID, seekerID)
	if err != nil {
		log.Printf("join: create request for event %d: %v", eventID, err)
		return "❌ Помилка: " + err.Error()
	}
	if !created {
		switch req.Status {
		case RequestApproved:
			return "Ваш запит уже схвалено"
		case RequestRejected:
			return "Ваш запит було відхилено"
		default:
			return "Ви вже надіслали запит, очікуйте рішення організатора"
		}
	}

	notice := tgbotapi.NewMessage(ev.UserID,
		fmt.Sprintf("🙋 Запит на участь у «%s»:\n\n%s", ev.Title, FormatProfileCard(seeker)))
	notice.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Схвалити", fmt.Sprintf("%s%d", ApprovePrefix, req.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Відхилити", fmt.Sprintf("%s%d", RejectPrefix, req.ID)),
		),
	)
	if seeker.Photo != "" {
		photo := tgbotapi.NewPhotoShare(ev.UserID, seeker.Photo)
		photo.Caption = notice.Text
		photo.ReplyMarkup = notice.ReplyMarkup
		if _, err := bot.Send(photo); err == nil {
			return "Запит надіслано організатору ✉️"
		}
		log.Printf("join: profile photo send to %d failed, falling back to text: %v", ev.UserID, err)
	}
	if _, err := bot.Send(notice); err != nil {
		log.Printf("join: organizer notification to %d failed: %v", ev.UserID, err)
	}
	return "Запит надіслано організатору ✉️"
}

// handleJoinCallback reacts to the "join:<event_id>" button on a card.
func handleJoinCallback(bot BotSender, repo Repository, cq *tgbotapi.CallbackQuery) {
	eventID, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, JoinPrefix), 10, 64)
	if err != nil {
		answerCallback(bot, cq.ID, "Невірні дані кнопки", true)
		return
	}
	text := requestJoin(bot, repo, int64(cq.From.ID), eventID)
	answerCallback(bot, cq.ID, text, true)
}

// handleApproveCallback reacts to the organizer's "approve:<req_id>".
func handleApproveCallback(bot BotSender, repo Repository, cq *tgbotapi.CallbackQuery) {
	reqID, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, ApprovePrefix), 10, 64)
	if err != nil {
		answerCallback(bot, cq.ID, "Невірні дані кнопки", true)
		return
	}

	result, err := repo.ApproveRequest(reqID, int64(cq.From.ID))
	if err != nil {
		log.Printf("approve request %d: %v", reqID, err)
		answerCallback(bot, cq.ID, "❌ Помилка: "+err.Error(), true)
		return
	}

	switch result.Code {
	case DecisionNotFound:
		answerCallback(bot, cq.ID, "Запит не знайдено", true)
	case DecisionForbidden:
		answerCallback(bot, cq.ID, "Лише організатор події може це зробити", true)
	case DecisionAlreadyApproved:
		answerCallback(bot, cq.ID, "Запит уже схвалено", true)
	case DecisionAlreadyRejected:
		answerCallback(bot, cq.ID, "Запит уже відхилено", true)
	case DecisionNoSeats:
		answerCallback(bot, cq.ID, "Вільних місць уже немає", true)
	case DecisionOK:
		answerCallback(bot, cq.ID, "Схвалено ✅", false)
		expires := result.Conversation.ExpiresAt.Format("15:04")
		chatNote := fmt.Sprintf("Чат відкрито на 30 хвилин (до %s UTC). "+
			"Просто пишіть сюди — я передам. /stopchat — завершити.", expires)
		sendMessage(bot, result.Event.UserID,
			fmt.Sprintf("✅ Ви схвалили запит до «%s».\n%s", result.Event.Title, chatNote))
		sendMessage(bot, result.Request.SeekerID,
			fmt.Sprintf("🎉 Ваш запит до «%s» схвалено!\n%s", result.Event.Title, chatNote))
	}
}

// handleRejectCallback reacts to the organizer's "reject:<req_id>".
func handleRejectCallback(bot BotSender, repo Repository, cq *tgbotapi.CallbackQuery) {
	reqID, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, RejectPrefix), 10, 64)
	if err != nil {
		answerCallback(bot, cq.ID, "Невірні дані кнопки", true)
		return
	}

	result, err := repo.RejectRequest(reqID, int64(cq.From.ID))
	if err != nil {
		log.Printf("reject request %d: %v", reqID, err)
		answerCallback(bot, cq.ID, "❌ Помилка: "+err.Error(), true)
		return
	}

	switch result.Code {
	case DecisionNotFound:
		answerCallback(bot, cq.ID, "Запит не знайдено", true)
	case DecisionForbidden:
		answerCallback(bot, cq.ID, "Лише організатор події може це зробити", true)
	case DecisionAlreadyApproved:
		answerCallback(bot, cq.ID, "Запит уже схвалено", true)
	case DecisionAlreadyRejected:
		answerCallback(bot, cq.ID, "Запит уже відхилено", true)
	case DecisionOK:
		answerCallback(bot, cq.ID, "Відхилено", false)
		sendMessage(bot, result.Request.SeekerID,
			fmt.Sprintf("😔 На жаль, ваш запит до «%s» відхилено", result.Event.Title))
	}
}

// answerCallback acknowledges an inline button press, as an alert popup
// for refusals and errors.
func answerCallback(bot BotSender, callbackID, text string, alert bool) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if alert {
		callback = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := bot.AnswerCallbackQuery(callback); err != nil {
		log.Printf("answer callback: %v", err)
	}
}
