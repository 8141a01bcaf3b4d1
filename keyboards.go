package main

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

// Reply keyboard labels. The FSM matches incoming text against these
// exactly, so they are part of the UI contract.
const (
	BtnProfile      = "👤 Мій профіль"
	BtnCreateEvent  = "➕ Створити подію"
	BtnFindEvent    = "🔍 Знайти подію"
	BtnEditProfile  = "✏️ Змінити профіль"
	BtnBack         = "⬅️ Назад"
	BtnSendLocation = "📍 Надіслати геолокацію"
	BtnTypeAddress  = "📝 Ввести адресу текстом"
	BtnSkipLocation = "⏭ Пропустити локацію"
	BtnSearchWord   = "🔎 За ключовим словом"
	BtnSearchNear   = "📍 Поруч зі мною"
	BtnSearchMine   = "🔮 За моїми інтересами"
	BtnPublish      = "✅ Опублікувати"
	BtnEditDraft    = "✏️ Редагувати"
	BtnCancelDraft  = "❌ Скасувати"
)

// MainMenuKeyboard is the top-level menu.
func MainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnProfile)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnCreateEvent)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnFindEvent)),
	)
}

// ProfileKeyboard is shown with the profile view.
func ProfileKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnEditProfile)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

// LocationChoiceKeyboard offers geolocation, a typed address or skipping.
func LocationChoiceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(BtnSendLocation)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnTypeAddress)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSkipLocation)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

// RadiusKeyboard offers the preset search radii in kilometers.
func RadiusKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("3"),
			tgbotapi.NewKeyboardButton("5"),
			tgbotapi.NewKeyboardButton("10"),
			tgbotapi.NewKeyboardButton("20"),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

// SearchMenuKeyboard picks the search mode.
func SearchMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSearchWord)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSearchNear)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnSearchMine)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}

// PublishConfirmKeyboard drives the terminal step of the event wizard.
func PublishConfirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnPublish)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnEditDraft),
			tgbotapi.NewKeyboardButton(BtnCancelDraft),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
}
