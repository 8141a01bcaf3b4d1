package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/skip2/go-qrcode"
)

const descriptionLimit = 300

// FormatEventCard renders one search result as message text.
func FormatEventCard(card EventCard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📌 %s (#%d)\n", card.Title, card.ID)

	if card.Date != nil {
		fmt.Fprintf(&b, "🗓 %s\n", card.Date.Format("2006-01-02 15:04"))
	} else {
		b.WriteString("🗓 —\n")
	}

	switch {
	case card.Location != "":
		fmt.Fprintf(&b, "📍 %s\n", card.Location)
	case card.LocationLat != nil && card.LocationLon != nil:
		fmt.Fprintf(&b, "📍 %.5f, %.5f\n", *card.LocationLat, *card.LocationLon)
	default:
		b.WriteString("📍 —\n")
	}

	fmt.Fprintf(&b, "👥 Вільних місць: %d/%d\n", card.NeededCount, card.Capacity)
	fmt.Fprintf(&b, "👤 Організатор: %s (подій: %d)\n", card.OrganizerName, card.OrganizerEventCount)
	if card.OrganizerInterests != "" {
		fmt.Fprintf(&b, "🔮 Інтереси: %s\n", card.OrganizerInterests)
	}

	if card.Description != "" {
		desc := []rune(card.Description)
		if len(desc) > descriptionLimit {
			desc = append(desc[:descriptionLimit], '…')
		}
		fmt.Fprintf(&b, "\n%s", string(desc))
	}

	return b.String()
}

// JoinButtonMarkup is the inline "join" button attached to a card.
func JoinButtonMarkup(eventID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🙋 Приєднатися", fmt.Sprintf("join:%d", eventID)),
		),
	)
}

// SendEventCard delivers one card. Events with a photo go out as a photo
// with the card as caption; if the platform refuses the photo the card is
// re-sent as plain text.
func SendEventCard(bot BotSender, chatID int64, card EventCard) {
	text := FormatEventCard(card)
	markup := JoinButtonMarkup(card.ID)

	if card.Photo != "" {
		photo := tgbotapi.NewPhotoShare(chatID, card.Photo)
		photo.Caption = text
		photo.ReplyMarkup = markup
		_, err := bot.Send(photo)
		if err == nil {
			return
		}
		log.Printf("card photo send failed for event %d, falling back to text: %v", card.ID, err)
	}

	message := tgbotapi.NewMessage(chatID, text)
	message.ReplyMarkup = markup
	if _, err := bot.Send(message); err != nil {
		log.Printf("card send failed for event %d: %v", card.ID, err)
	}
}

// SendEventCards renders a search result list, or a "nothing found" note.
func SendEventCards(bot BotSender, chatID int64, cards []EventCard) {
	if len(cards) == 0 {
		sendMessage(bot, chatID, "Нічого не знайдено 😔")
		return
	}
	for _, card := range cards {
		SendEventCard(bot, chatID, card)
	}
}

// FormatProfileCard renders a user profile, for the profile view and for
// the organizer's approve/reject notification.
func FormatProfileCard(user *User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n", user.Name)
	if user.City != "" {
		fmt.Fprintf(&b, "🏙 Місто: %s\n", user.City)
	}
	if user.Interests != "" {
		fmt.Fprintf(&b, "🔮 Інтереси: %s\n", user.Interests)
	}
	return b.String()
}

// SendEventShareQR sends the organizer a QR code with the deep link that
// opens the bot and joins the event ("/start join_<id>").
func SendEventShareQR(bot BotSender, chatID int64, botUsername string, eventID int64) {
	link := fmt.Sprintf("https://t.me/%s?start=join_%d", botUsername, eventID)
	qrFile := fmt.Sprintf("event_qr_%d.png", eventID)
	if err := qrcode.WriteFile(link, qrcode.Medium, 256, qrFile); err != nil {
		log.Printf("qr generation failed for event %d: %v", eventID, err)
		return
	}
	defer os.Remove(qrFile)

	photo := tgbotapi.NewPhotoUpload(chatID, qrFile)
	photo.Caption = "QR-код вашої події — покажіть його, щоб люди могли приєднатися: " + link
	if _, err := bot.Send(photo); err != nil {
		log.Printf("qr send failed for event %d: %v", eventID, err)
	}
}
