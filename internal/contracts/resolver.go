// Package contracts resolves logical futures products to concrete front-month
// contract symbols.
package contracts

import (
	"strings"
	"time"
)

// Futures month codes, January through December.
var monthCodes = map[time.Month]string{
	time.January:   "F",
	time.February:  "G",
	time.March:     "H",
	time.April:     "J",
	time.May:       "K",
	time.June:      "M",
	time.July:      "N",
	time.August:    "Q",
	time.September: "U",
	time.October:   "V",
	time.November:  "X",
	time.December:  "Z",
}

// ES and NQ trade quarterly contracts.
var quarterlyMonths = []time.Month{time.March, time.June, time.September, time.December}

// Volume migrates to the next contract roughly this many days before the
// third-Friday expiration.
const rolloverDaysBeforeExpiration = 10

// FrontMonth returns the front month contract symbol for an ES/NQ-style
// quarterly product as of the given date, e.g. "/ESH25" for March 2025.
// Within the rollover window before expiration the next quarterly contract
// is returned instead.
func FrontMonth(product string, asOf time.Time) string {
	current := dateOnly(asOf)

	expMonth, expYear := nextQuarterlyExpiration(current)
	expiration := thirdFriday(expYear, expMonth)

	if daysBetween(current, expiration) <= rolloverDaysBeforeExpiration {
		expMonth, expYear = nextQuarterlyMonth(expMonth, expYear)
	}

	yearCode := expYear % 100
	return "/" + strings.ToUpper(product) + monthCodes[expMonth] + twoDigits(yearCode)
}

// Expiration parses a contract symbol like "/ESH25" and returns its
// third-Friday expiration date. The second return is false for symbols that
// do not follow the /{PRODUCT}{CODE}{YY} format.
func Expiration(symbol string) (time.Time, bool) {
	if !strings.HasPrefix(symbol, "/") || len(symbol) < 4 {
		return time.Time{}, false
	}

	body := symbol[1:]
	code := string(body[len(body)-3])
	yearPart := body[len(body)-2:]

	var month time.Month
	found := false
	for m, c := range monthCodes {
		if c == code {
			month = m
			found = true
			break
		}
	}
	if !found {
		return time.Time{}, false
	}

	year := 0
	for _, r := range yearPart {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
		year = year*10 + int(r-'0')
	}

	return thirdFriday(2000+year, month), true
}

// nextQuarterlyExpiration finds the first quarterly month at or after the
// given date's month.
func nextQuarterlyExpiration(current time.Time) (time.Month, int) {
	for _, month := range quarterlyMonths {
		if month >= current.Month() {
			return month, current.Year()
		}
	}
	return quarterlyMonths[0], current.Year() + 1
}

// nextQuarterlyMonth advances to the quarterly month after the given one,
// wrapping December into March of the next year.
func nextQuarterlyMonth(month time.Month, year int) (time.Month, int) {
	for i, m := range quarterlyMonths {
		if m == month {
			if i == len(quarterlyMonths)-1 {
				return quarterlyMonths[0], year + 1
			}
			return quarterlyMonths[i+1], year
		}
	}
	for _, m := range quarterlyMonths {
		if m > month {
			return m, year
		}
	}
	return quarterlyMonths[0], year + 1
}

// thirdFriday returns the contract expiration day for a month.
func thirdFriday(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysUntilFriday := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, daysUntilFriday+14)
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
