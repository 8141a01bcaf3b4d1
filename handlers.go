package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// searchLimit caps the number of cards a search renders.
const searchLimit = 10

// BotSender is the slice of the Telegram client the handlers use.
// *tgbotapi.BotAPI satisfies it; tests substitute a recording fake.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)
}

// sendMessage sends a text message to the given chat.
func sendMessage(bot BotSender, chatID int64, text string) {
	message := tgbotapi.NewMessage(chatID, text)
	if _, err := bot.Send(message); err != nil {
		log.Printf("send to %d: %v", chatID, err)
	}
}

// sendWithKeyboard sends a text message with a reply keyboard attached.
func sendWithKeyboard(bot BotSender, chatID int64, text string, markup interface{}) {
	message := tgbotapi.NewMessage(chatID, text)
	message.ReplyMarkup = markup
	if _, err := bot.Send(message); err != nil {
		log.Printf("send to %d: %v", chatID, err)
	}
}

// handleCommand routes commands to corresponding handlers.
func handleCommand(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		handleStart(bot, repo, sessions, msg)
	case "myevents":
		handleMyEvents(bot, repo, msg)
	case "dbinfo":
		handleDBInfo(bot, repo, msg)
	case "stopchat":
		handleStopChat(bot, repo, msg)
	default:
		sendMessage(bot, msg.Chat.ID, "Невідома команда")
	}
}

// handleStart begins registration for new users and shows the menu to
// registered ones. "/start join_<id>" is the QR deep link and behaves
// like pressing the join button on that event's card.
func handleStart(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if strings.HasPrefix(args, "join_") {
		if eventID, err := strconv.ParseInt(strings.TrimPrefix(args, "join_"), 10, 64); err == nil {
			sendMessage(bot, msg.Chat.ID, requestJoin(bot, repo, int64(msg.From.ID), eventID))
			return
		}
	}

	user, err := repo.GetUser(int64(msg.From.ID))
	if err != nil {
		log.Printf("start: get user %d: %v", msg.From.ID, err)
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return
	}
	if user == nil {
		session := sessions.Reset(int64(msg.From.ID))
		session.Step = StepName
		sendMessage(bot, msg.Chat.ID, "Вітаю! Давайте знайомитися 👋\nЯк вас звати?")
		return
	}
	sessions.Reset(int64(msg.From.ID))
	sendWithKeyboard(bot, msg.Chat.ID, "Головне меню", MainMenuKeyboard())
}

// handleMyEvents lists the caller's own published events.
func handleMyEvents(bot BotSender, repo Repository, msg *tgbotapi.Message) {
	events, err := repo.EventsByOwner(int64(msg.From.ID))
	if err != nil {
		log.Printf("myevents for %d: %v", msg.From.ID, err)
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return
	}
	if len(events) == 0 {
		sendMessage(bot, msg.Chat.ID, "Ви ще не публікували подій")
		return
	}
	for _, ev := range events {
		date := "—"
		if ev.Date != nil {
			date = ev.Date.Format("2006-01-02 15:04")
		}
		sendMessage(bot, msg.Chat.ID, fmt.Sprintf("📌 %s (#%d)\n🗓 %s\n👥 Вільних місць: %d/%d",
			ev.Title, ev.ID, date, ev.NeededCount, ev.Capacity))
	}
}

// handleDBInfo echoes the database identity, a quick deploy diagnostic.
func handleDBInfo(bot BotSender, repo Repository, msg *tgbotapi.Message) {
	info, err := repo.DBInfo()
	if err != nil {
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return
	}
	sendMessage(bot, msg.Chat.ID, "🛢 "+info)
}

// handleCallbackQuery handles inline button callbacks.
func handleCallbackQuery(bot BotSender, repo Repository, sessions *SessionManager, cq *tgbotapi.CallbackQuery) {
	switch {
	case cq.Data == CalNoop:
		answerCallback(bot, cq.ID, "", false)
	case strings.HasPrefix(cq.Data, CalNavPrefix):
		handleCalendarNav(bot, cq)
	case strings.HasPrefix(cq.Data, CalDatePrefix):
		handleCalendarDate(bot, sessions, cq)
	case strings.HasPrefix(cq.Data, JoinPrefix):
		handleJoinCallback(bot, repo, cq)
	case strings.HasPrefix(cq.Data, ApprovePrefix):
		handleApproveCallback(bot, repo, cq)
	case strings.HasPrefix(cq.Data, RejectPrefix):
		handleRejectCallback(bot, repo, cq)
	default:
		answerCallback(bot, cq.ID, "", false)
	}
}

// handleCalendarNav re-renders the inline calendar on another month.
func handleCalendarNav(bot BotSender, cq *tgbotapi.CallbackQuery) {
	year, month, ok := ParseCalNav(strings.TrimPrefix(cq.Data, CalNavPrefix))
	if !ok {
		answerCallback(bot, cq.ID, "", false)
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID, CalendarMarkup(year, month))
	if _, err := bot.Send(edit); err != nil {
		log.Printf("calendar nav edit: %v", err)
	}
	answerCallback(bot, cq.ID, "", false)
}

// handleCalendarDate stores the picked day and asks for the clock value.
func handleCalendarDate(bot BotSender, sessions *SessionManager, cq *tgbotapi.CallbackQuery) {
	session := sessions.Get(int64(cq.From.ID))
	if session.Step != StepCreateEventDate {
		answerCallback(bot, cq.ID, "", false)
		return
	}
	day := strings.TrimPrefix(cq.Data, CalDatePrefix)
	if _, err := time.Parse("2006-01-02", day); err != nil {
		answerCallback(bot, cq.ID, "Невірна дата", true)
		return
	}
	session.PickedDate = day
	session.Step = StepCreateEventTime
	answerCallback(bot, cq.ID, day, false)
	sendMessage(bot, cq.Message.Chat.ID, "О котрій годині? Напишіть час у форматі HH:MM, наприклад 19:30")
}

// handleDialog dispatches a plain message into the user's current FSM
// step. The back button resets to the menu from any state.
func handleDialog(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message) {
	userID := int64(msg.From.ID)
	session := sessions.Get(userID)

	if msg.Text == BtnBack {
		sessions.Reset(userID)
		sendWithKeyboard(bot, msg.Chat.ID, "Головне меню", MainMenuKeyboard())
		return
	}

	switch session.Step {
	case StepMenu:
		handleMenuStep(bot, repo, sessions, msg, session)
	case StepName:
		session.Name = strings.TrimSpace(msg.Text)
		session.Step = StepCity
		sendMessage(bot, msg.Chat.ID, promptWithCurrent("З якого ви міста?", session.City))
	case StepCity:
		session.City = strings.TrimSpace(msg.Text)
		session.Step = StepPhoto
		sendMessage(bot, msg.Chat.ID, "Надішліть фото профілю 📷")
	case StepPhoto:
		photoID := largestPhotoID(msg)
		if photoID == "" {
			sendMessage(bot, msg.Chat.ID, "Будь ласка, надішліть саме фото 📷")
			return
		}
		session.Photo = photoID
		session.Step = StepInterests
		sendMessage(bot, msg.Chat.ID, promptWithCurrent("Перелічіть ваші інтереси через кому,\nнаприклад: шахи, походи, настільні ігри", session.Interests))
	case StepInterests:
		finishRegistration(bot, repo, sessions, msg, session)
	case StepCreateEventTitle:
		session.EventTitle = strings.TrimSpace(msg.Text)
		session.Step = StepCreateEventDescription
		sendMessage(bot, msg.Chat.ID, promptWithCurrent("Опишіть подію кількома реченнями", session.EventDescription))
	case StepCreateEventDescription:
		session.EventDescription = strings.TrimSpace(msg.Text)
		session.Step = StepCreateEventDate
		promptEventDate(bot, msg.Chat.ID)
	case StepCreateEventDate:
		if date, ok := ParseUserDateTime(msg.Text); ok {
			session.EventDate = &date
			session.Step = StepCreateEventLocation
			sendWithKeyboard(bot, msg.Chat.ID, "Де відбудеться подія?", LocationChoiceKeyboard())
			return
		}
		sendMessage(bot, msg.Chat.ID, "Не розпізнав дату. Напишіть, наприклад, 10.10.2025 19:30 — або оберіть день у календарі вище")
	case StepCreateEventTime:
		hour, min, ok := ParseTimeHHMM(msg.Text)
		if !ok {
			sendMessage(bot, msg.Chat.ID, "Невірний формат часу. Напишіть, наприклад, 19:30")
			return
		}
		day, err := time.Parse("2006-01-02", session.PickedDate)
		if err != nil {
			// Calendar day got lost, fall back to the date step.
			session.Step = StepCreateEventDate
			promptEventDate(bot, msg.Chat.ID)
			return
		}
		date := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
		session.EventDate = &date
		session.Step = StepCreateEventLocation
		sendWithKeyboard(bot, msg.Chat.ID, "Де відбудеться подія?", LocationChoiceKeyboard())
	case StepCreateEventLocation:
		handleEventLocationStep(bot, msg, session)
	case StepCreateEventLocationName:
		session.EventLocation = strings.TrimSpace(msg.Text)
		session.Step = StepCreateEventCapacity
		sendMessage(bot, msg.Chat.ID, "Скільки всього місць на події?")
	case StepCreateEventCapacity:
		n, ok := ParsePositiveInt(msg.Text)
		if !ok {
			sendMessage(bot, msg.Chat.ID, "Потрібне додатне число. Скільки всього місць?")
			return
		}
		session.Capacity = n
		session.Step = StepCreateEventNeeded
		sendMessage(bot, msg.Chat.ID, fmt.Sprintf("Скількох учасників ви шукаєте? (від 1 до %d)", n))
	case StepCreateEventNeeded:
		n, ok := ParsePositiveInt(msg.Text)
		if !ok || n > session.Capacity {
			sendMessage(bot, msg.Chat.ID, fmt.Sprintf("Потрібне число від 1 до %d", session.Capacity))
			return
		}
		session.NeededCount = n
		session.Step = StepCreateEventPhoto
		sendWithKeyboard(bot, msg.Chat.ID,
			"Майже готово! Можете надіслати фото події (необовʼязково).\n\n"+draftSummary(session),
			PublishConfirmKeyboard())
	case StepCreateEventPhoto:
		handleEventPhotoStep(bot, repo, sessions, msg, session)
	case StepSearchMenu:
		handleSearchMenuStep(bot, repo, sessions, msg, session)
	case StepSearchKeywordWait:
		cards, err := repo.FindEventsByKeyword(msg.Text, searchLimit)
		if err != nil {
			log.Printf("keyword search %q: %v", msg.Text, err)
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		SendEventCards(bot, msg.Chat.ID, cards)
		sessions.Reset(userID)
		sendWithKeyboard(bot, msg.Chat.ID, "Головне меню", MainMenuKeyboard())
	case StepSearchGeoWaitLocation:
		if msg.Location == nil {
			sendWithKeyboard(bot, msg.Chat.ID, "Надішліть геолокацію, щоб знайти події поруч", LocationChoiceKeyboard())
			return
		}
		session.SearchLat = msg.Location.Latitude
		session.SearchLon = msg.Location.Longitude
		session.Step = StepSearchGeoWaitRadius
		sendWithKeyboard(bot, msg.Chat.ID, "У якому радіусі шукати (км)?", RadiusKeyboard())
	case StepSearchGeoWaitRadius:
		radius, err := strconv.ParseFloat(strings.TrimSpace(msg.Text), 64)
		if err != nil || radius <= 0 {
			radius = 5.0
		}
		cards, err := repo.FindEventsNear(session.SearchLat, session.SearchLon, radius, searchLimit)
		if err != nil {
			log.Printf("geo search: %v", err)
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		SendEventCards(bot, msg.Chat.ID, cards)
		sessions.Reset(userID)
		sendWithKeyboard(bot, msg.Chat.ID, "Головне меню", MainMenuKeyboard())
	}
}

// handleMenuStep reacts to the main-menu and profile-view buttons.
func handleMenuStep(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message, session *Session) {
	userID := int64(msg.From.ID)

	switch msg.Text {
	case BtnProfile:
		user, err := repo.GetUser(userID)
		if err != nil {
			log.Printf("profile view for %d: %v", userID, err)
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		if user == nil {
			sendMessage(bot, msg.Chat.ID, "Профіль не знайдено. Зареєструйтесь через /start")
			return
		}
		if user.Photo != "" {
			photo := tgbotapi.NewPhotoShare(msg.Chat.ID, user.Photo)
			photo.Caption = FormatProfileCard(user)
			if _, err := bot.Send(photo); err == nil {
				sendWithKeyboard(bot, msg.Chat.ID, "Що робимо далі?", ProfileKeyboard())
				return
			}
		}
		sendWithKeyboard(bot, msg.Chat.ID, FormatProfileCard(user), ProfileKeyboard())
	case BtnEditProfile:
		user, err := repo.GetUser(userID)
		if err != nil {
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		if user == nil {
			sendMessage(bot, msg.Chat.ID, "Профіль не знайдено. Зареєструйтесь через /start")
			return
		}
		session.Name = user.Name
		session.City = user.City
		session.Photo = user.Photo
		session.Interests = user.Interests
		session.Step = StepName
		sendMessage(bot, msg.Chat.ID, promptWithCurrent("Як вас звати?", user.Name))
	case BtnCreateEvent:
		user, err := repo.GetUser(userID)
		if err != nil {
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		if user == nil {
			sendMessage(bot, msg.Chat.ID, "Спочатку зареєструйтесь через /start")
			return
		}
		session.CreatorName = user.Name
		session.CreatorPhone = user.Phone
		session.Step = StepCreateEventTitle
		sendMessage(bot, msg.Chat.ID, promptWithCurrent("Як назвемо подію?", session.EventTitle))
	case BtnFindEvent:
		session.Step = StepSearchMenu
		sendWithKeyboard(bot, msg.Chat.ID, "Як шукаємо?", SearchMenuKeyboard())
	default:
		sendWithKeyboard(bot, msg.Chat.ID, "Оберіть дію з меню 👇", MainMenuKeyboard())
	}
}

// handleEventLocationStep accepts a geolocation, a typed-address choice or
// a skip; anything else re-displays the location keyboard.
func handleEventLocationStep(bot BotSender, msg *tgbotapi.Message, session *Session) {
	if msg.Location != nil {
		lat, lon := msg.Location.Latitude, msg.Location.Longitude
		session.EventLat = &lat
		session.EventLon = &lon
		session.Step = StepCreateEventLocationName
		sendMessage(bot, msg.Chat.ID, "Як називається це місце? Напишіть адресу або назву")
		return
	}
	switch msg.Text {
	case BtnTypeAddress:
		session.Step = StepCreateEventLocationName
		sendMessage(bot, msg.Chat.ID, "Напишіть адресу або назву місця")
	case BtnSkipLocation:
		session.EventLocation = ""
		session.EventLat = nil
		session.EventLon = nil
		session.Step = StepCreateEventCapacity
		sendMessage(bot, msg.Chat.ID, "Скільки всього місць на події?")
	default:
		sendWithKeyboard(bot, msg.Chat.ID, "Де відбудеться подія?", LocationChoiceKeyboard())
	}
}

// handleEventPhotoStep is the terminal wizard step: an optional photo,
// then publish / edit / cancel.
func handleEventPhotoStep(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message, session *Session) {
	userID := int64(msg.From.ID)

	if photoID := largestPhotoID(msg); photoID != "" {
		session.EventPhoto = photoID
		sendWithKeyboard(bot, msg.Chat.ID, "Фото додано 📷\n\n"+draftSummary(session), PublishConfirmKeyboard())
		return
	}

	switch msg.Text {
	case BtnPublish:
		ev := Event{
			UserID:       userID,
			CreatorName:  session.CreatorName,
			CreatorPhone: session.CreatorPhone,
			Title:        session.EventTitle,
			Description:  session.EventDescription,
			Date:         session.EventDate,
			Location:     session.EventLocation,
			LocationLat:  session.EventLat,
			LocationLon:  session.EventLon,
			Capacity:     session.Capacity,
			NeededCount:  session.NeededCount,
			Photo:        session.EventPhoto,
		}
		if err := repo.InsertEvent(&ev); err != nil {
			log.Printf("publish event for %d: %v", userID, err)
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		sessions.Reset(userID)
		sendWithKeyboard(bot, msg.Chat.ID, fmt.Sprintf("Подію «%s» опубліковано ✅", ev.Title), MainMenuKeyboard())
		SendEventShareQR(bot, msg.Chat.ID, BotUsername, ev.ID)
	case BtnEditDraft:
		session.Step = StepCreateEventTitle
		sendMessage(bot, msg.Chat.ID, promptWithCurrent("Як назвемо подію?", session.EventTitle))
	case BtnCancelDraft:
		sessions.Reset(userID)
		sendWithKeyboard(bot, msg.Chat.ID, "Скасовано", MainMenuKeyboard())
	default:
		sendWithKeyboard(bot, msg.Chat.ID, draftSummary(session), PublishConfirmKeyboard())
	}
}

// handleSearchMenuStep picks the search mode. The interests search runs
// immediately and drops back to the menu.
func handleSearchMenuStep(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message, session *Session) {
	userID := int64(msg.From.ID)

	switch msg.Text {
	case BtnSearchWord:
		session.Step = StepSearchKeywordWait
		sendMessage(bot, msg.Chat.ID, "Введіть ключове слово 🔎")
	case BtnSearchNear:
		session.Step = StepSearchGeoWaitLocation
		sendWithKeyboard(bot, msg.Chat.ID, "Надішліть геолокацію, щоб знайти події поруч", LocationChoiceKeyboard())
	case BtnSearchMine:
		cards, err := repo.FindEventsByInterests(userID, searchLimit)
		if err != nil {
			log.Printf("interests search for %d: %v", userID, err)
			sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
			return
		}
		SendEventCards(bot, msg.Chat.ID, cards)
		sessions.Reset(userID)
		sendWithKeyboard(bot, msg.Chat.ID, "Головне меню", MainMenuKeyboard())
	default:
		sendWithKeyboard(bot, msg.Chat.ID, "Як шукаємо?", SearchMenuKeyboard())
	}
}

// finishRegistration saves the profile and returns to the menu.
func finishRegistration(bot BotSender, repo Repository, sessions *SessionManager, msg *tgbotapi.Message, session *Session) {
	userID := int64(msg.From.ID)

	var tokens []string
	for _, part := range strings.Split(msg.Text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}

	phone := ""
	if existing, err := repo.GetUser(userID); err == nil && existing != nil {
		phone = existing.Phone
	}
	if msg.Contact != nil && msg.Contact.PhoneNumber != "" {
		phone = msg.Contact.PhoneNumber
	}

	err := repo.UpsertUser(User{
		TelegramID: userID,
		Phone:      phone,
		Name:       session.Name,
		City:       session.City,
		Photo:      session.Photo,
		Interests:  strings.Join(tokens, ", "),
	})
	if err != nil {
		log.Printf("save profile for %d: %v", userID, err)
		sendMessage(bot, msg.Chat.ID, "❌ Помилка: "+err.Error())
		return
	}
	sessions.Reset(userID)
	sendWithKeyboard(bot, msg.Chat.ID, "Профіль збережено ✅", MainMenuKeyboard())
}

// promptEventDate shows the date prompt together with the current month's
// inline calendar.
func promptEventDate(bot BotSender, chatID int64) {
	now := time.Now()
	message := tgbotapi.NewMessage(chatID,
		"Коли відбудеться подія? Напишіть дату й час\n(наприклад: 10.10.2025 19:30 або 10 жовтня 2025 19:30)\nабо оберіть день у календарі:")
	message.ReplyMarkup = CalendarMarkup(now.Year(), now.Month())
	if _, err := bot.Send(message); err != nil {
		log.Printf("send calendar to %d: %v", chatID, err)
	}
}

// draftSummary renders the event draft for the confirmation step.
func draftSummary(session *Session) string {
	date := "—"
	if session.EventDate != nil {
		date = session.EventDate.Format("2006-01-02 15:04")
	}
	location := session.EventLocation
	if location == "" && session.EventLat != nil && session.EventLon != nil {
		location = fmt.Sprintf("%.5f, %.5f", *session.EventLat, *session.EventLon)
	}
	if location == "" {
		location = "—"
	}
	return fmt.Sprintf("📌 %s\n🗓 %s\n📍 %s\n👥 Шукаю %d із %d місць\n\n%s",
		session.EventTitle, date, location, session.NeededCount, session.Capacity, session.EventDescription)
}

// promptWithCurrent appends the currently stored value to a prompt so the
// edit flows show what is about to be replaced.
func promptWithCurrent(prompt, current string) string {
	if current != "" {
		return prompt + "\n(зараз: " + current + ")"
	}
	return prompt
}

// largestPhotoID returns the file id of the biggest size of an incoming
// photo, or "" if the message carries none.
func largestPhotoID(msg *tgbotapi.Message) string {
	if msg.Photo == nil || len(*msg.Photo) == 0 {
		return ""
	}
	sizes := *msg.Photo
	return sizes[len(sizes)-1].FileID
}
