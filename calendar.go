package main

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Inline calendar callback data. Day cells carry "cal:date:YYYY-MM-DD",
// the navigation arrows "cal:nav:YYYY-MM", inert cells "cal:noop".
const (
	CalNoop       = "cal:noop"
	CalNavPrefix  = "cal:nav:"
	CalDatePrefix = "cal:date:"
)

// CalendarMarkup builds the inline keyboard for one month: a header with
// the English month name, a Mo–Su strip and a Monday-start day grid with
// blank leading and trailing cells.
func CalendarMarkup(year int, month time.Month) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", month.String(), year), CalNoop)},
	}

	weekdays := []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
	var strip []tgbotapi.InlineKeyboardButton
	for _, wd := range weekdays {
		strip = append(strip, tgbotapi.NewInlineKeyboardButtonData(wd, CalNoop))
	}
	rows = append(rows, strip)

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Monday-start offset: Monday=0 .. Sunday=6.
	offset := (int(first.Weekday()) + 6) % 7
	daysInMonth := first.AddDate(0, 1, -1).Day()

	day := 1
	for day <= daysInMonth {
		var row []tgbotapi.InlineKeyboardButton
		for cell := 0; cell < 7; cell++ {
			if (len(rows) == 2 && cell < offset) || day > daysInMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", CalNoop))
				continue
			}
			data := fmt.Sprintf("%s%04d-%02d-%02d", CalDatePrefix, year, int(month), day)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", day), data))
			day++
		}
		rows = append(rows, row)
	}

	prevYear, prevMonth := NavMonth(year, month, -1)
	nextYear, nextMonth := NavMonth(year, month, +1)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("%s%04d-%02d", CalNavPrefix, prevYear, int(prevMonth))),
		tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("%s%04d-%02d", CalNavPrefix, nextYear, int(nextMonth))),
	})

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// NavMonth steps a month forward or backward, wrapping the year at the
// December/January boundary.
func NavMonth(year int, month time.Month, delta int) (int, time.Month) {
	m := int(month) + delta
	for m > 12 {
		m -= 12
		year++
	}
	for m < 1 {
		m += 12
		year--
	}
	return year, time.Month(m)
}

// ParseCalNav parses the "YYYY-MM" payload of a navigation callback.
func ParseCalNav(data string) (int, time.Month, bool) {
	var year, month int
	if _, err := fmt.Sscanf(data, "%d-%d", &year, &month); err != nil {
		return 0, 0, false
	}
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}
