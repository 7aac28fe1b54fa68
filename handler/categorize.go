package handler

import (
	"strings"
	"unicode"
)

// Categories is the set of context sections a free-text question asks for.
type Categories uint8

const (
	CategoryCars Categories = 1 << iota
	CategoryReservations
	CategoryStats
)

func (c Categories) Has(o Categories) bool {
	return c&o != 0
}

var keywords = map[string]Categories{
	"available":    CategoryCars,
	"availability": CategoryCars,
	"book":         CategoryCars,
	"car":          CategoryCars,
	"cars":         CategoryCars,
	"free":         CategoryCars,
	"fleet":        CategoryCars,
	"license":      CategoryCars,
	"model":        CategoryCars,
	"plate":        CategoryCars,
	"rent":         CategoryCars,
	"vehicle":      CategoryCars,
	"vehicles":     CategoryCars,
	"when":         CategoryCars,

	"booked":       CategoryReservations,
	"booking":      CategoryReservations,
	"bookings":     CategoryReservations,
	"mine":         CategoryReservations,
	"my":           CategoryReservations,
	"reservation":  CategoryReservations,
	"reservations": CategoryReservations,
	"upcoming":     CategoryReservations,

	"busiest":    CategoryStats,
	"count":      CategoryStats,
	"many":       CategoryStats,
	"popular":    CategoryStats,
	"statistics": CategoryStats,
	"stats":      CategoryStats,
	"total":      CategoryStats,
}

// Categorize maps each word of text to its category and returns the union.
func Categorize(text string) Categories {
	var ret Categories
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		ret |= keywords[w]
	}
	return ret
}
