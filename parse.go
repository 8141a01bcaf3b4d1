package main

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthWords maps lowercase month names to month numbers. Ukrainian and
// Russian entries are the genitive forms users type in dates
// ("10 жовтня 2025").
var monthWords = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,

	"січня": time.January, "лютого": time.February, "березня": time.March,
	"квітня": time.April, "травня": time.May, "червня": time.June,
	"липня": time.July, "серпня": time.August, "вересня": time.September,
	"жовтня": time.October, "листопада": time.November, "грудня": time.December,

	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
}

var (
	dmyRe   = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{4})\s+(\d{1,2}):(\d{2})$`)
	isoRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
	wordRe  = regexp.MustCompile(`^(\d{1,2})\s+([^\s\d]+)\s+(\d{4})\s+(\d{1,2}):(\d{2})$`)
	clockRe = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)
)

// ParseUserDateTime parses the free-form date-time formats users type:
// "10.10.2025 19:30", "2025-10-10 19:30" and "10 жовтня 2025 19:30"
// (month words in Ukrainian, Russian or English). The result is a naive
// local timestamp; ok is false if the input is unrecognized or the
// calendar date does not exist.
func ParseUserDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.ToLower(s))

	var year, day, hour, min int
	var month time.Month

	switch {
	case dmyRe.MatchString(s):
		m := dmyRe.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		month = time.Month(mm)
		year, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
	case isoRe.MatchString(s):
		m := isoRe.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		month = time.Month(mm)
		day, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
	case wordRe.MatchString(s):
		m := wordRe.FindStringSubmatch(s)
		var ok bool
		month, ok = monthWords[m[2]]
		if !ok {
			return time.Time{}, false
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
	default:
		return time.Time{}, false
	}

	if month < time.January || month > time.December {
		return time.Time{}, false
	}
	if hour > 23 || min > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, min, 0, 0, time.UTC)
	// time.Date normalizes overflow (31.02 becomes 03.03); reject that.
	if t.Day() != day || t.Month() != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimeHHMM parses a clock value like "19:30" or "19.30".
func ParseTimeHHMM(s string) (hour, min int, ok bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	min, _ = strconv.Atoi(m[2])
	if hour > 23 || min > 59 {
		return 0, 0, false
	}
	return hour, min, true
}

// ParsePositiveInt parses a strictly positive integer.
func ParsePositiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
