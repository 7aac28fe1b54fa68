package util

import (
	"math"
	"strconv"
	"time"
)

const (
	InstantLayout = "2006-01-02 15:04"
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
)

func Ordinalize(num int) string {

	var ordinalDictionary = map[int]string{
		0: "th",
		1: "st",
		2: "nd",
		3: "rd",
		4: "th",
		5: "th",
		6: "th",
		7: "th",
		8: "th",
		9: "th",
	}

	positiveNum := int(math.Abs(float64(num)))

	if ((positiveNum % 100) >= 11) && ((positiveNum % 100) <= 13) {
		return strconv.Itoa(num) + "th"
	}

	return strconv.Itoa(num) + ordinalDictionary[positiveNum%10]
}

// FormatInstant renders t in loc the way replies show dates.
func FormatInstant(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(InstantLayout)
}

func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ClockLayout)
}

// ParseInstant is the inverse of FormatInstant.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(InstantLayout, s, loc)
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
