// Package jalaali parses ISO and Persian (Jalali) calendar dates as they
// appear on news sites.
package jalaali

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/jalaali/go-jalaali"
)

// Ensure Parser implements newsgrab.DateParser at compile time.
var _ newsgrab.DateParser = (*Parser)(nil)

// months maps Jalali month names to month numbers.
var months = map[string]jalaali.Month{
	"فروردین":  jalaali.Farvardin,
	"اردیبهشت": jalaali.Ordibehesht,
	"خرداد":    jalaali.Khordad,
	"تیر":      jalaali.Tir,
	"مرداد":    jalaali.Mordad,
	"شهریور":   jalaali.Shahrivar,
	"مهر":      jalaali.Mehr,
	"آبان":     jalaali.Aban,
	"آذر":      jalaali.Azar,
	"دی":       jalaali.Dey,
	"بهمن":     jalaali.Bahman,
	"اسفند":    jalaali.Esfand,
}

var (
	namedDateRe   = regexp.MustCompile(`(\d{1,2})\s+(\p{Arabic}+)\s+(\d{4})(?:\s*[-–،,]\s*(\d{1,2}):(\d{2}))?`)
	numericDateRe = regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`)
	isoDateRe     = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2}))?`)
)

// Parser parses dates in the ISO and Jalali calendars.
// Persian and Arabic-Indic digits are accepted anywhere ASCII digits are.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseDate returns the UTC instant described by text.
//
// Jalali text is either "DD <month name> YYYY" with an optional
// " - HH:MM" suffix, or numeric "YYYY/MM/DD". ISO text is "YYYY-MM-DD",
// optionally followed by a time; the date and time are taken as written.
func (p *Parser) ParseDate(text string, calendar newsgrab.Calendar) (time.Time, error) {
	s := Normalize(text)
	if s == "" {
		return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "empty date text")
	}

	switch calendar {
	case newsgrab.CalendarISO:
		return parseISO(s)
	case newsgrab.CalendarJalali:
		return parseJalali(s)
	case newsgrab.CalendarAuto, "":
		if HasMonthName(s) || numericDateRe.MatchString(s) {
			return parseJalali(s)
		}
		return parseISO(s)
	}
	return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "unknown calendar %q", string(calendar))
}

// Normalize replaces Persian and Arabic-Indic digits with ASCII digits,
// folds Arabic yeh and kaf into their Persian forms and collapses
// whitespace.
func Normalize(text string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r == 'ي' || r == 'ى':
			return 'ی'
		case r == 'ك':
			return 'ک'
		}
		return r
	}, text)
	return strings.Join(strings.Fields(s), " ")
}

// HasMonthName reports whether normalized text names a Jalali month.
func HasMonthName(s string) bool {
	for _, word := range strings.Fields(s) {
		if _, ok := months[word]; ok {
			return true
		}
	}
	return false
}

func parseJalali(s string) (time.Time, error) {
	if m := namedDateRe.FindStringSubmatch(s); m != nil {
		month, ok := months[m[2]]
		if !ok {
			return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "unknown Jalali month %q in %q", m[2], s)
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		hour, minute := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}
		return toGregorian(year, int(month), day, hour, minute, s)
	}

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return toGregorian(year, month, day, 0, 0, s)
	}

	return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "no Jalali date in %q", s)
}

func toGregorian(jy, jm, jd, hour, minute int, s string) (time.Time, error) {
	if !jalaali.IsValidDate(jy, jm, jd) {
		return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "invalid Jalali date %d/%d/%d in %q", jy, jm, jd, s)
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "invalid time in %q", s)
	}
	gy, gm, gd, err := jalaali.ToGregorian(jy, jalaali.Month(jm), jd)
	if err != nil {
		return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "converting %q: %v", s, err)
	}
	return time.Date(gy, gm, gd, hour, minute, 0, 0, time.UTC), nil
}

func parseISO(s string) (time.Time, error) {
	m := isoDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "no ISO date in %q", s)
	}
	t, err := time.Parse(time.DateOnly, m[1]+"-"+m[2]+"-"+m[3])
	if err != nil {
		return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "invalid ISO date in %q", s)
	}
	if m[4] != "" {
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		if hour > 23 || minute > 59 {
			return time.Time{}, newsgrab.Errorf(newsgrab.EDATEPARSE, "invalid time in %q", s)
		}
		t = t.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}
	return t, nil
}
