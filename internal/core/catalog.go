package core

import "time"

// catalog maps a weekday to the games drawn that day, in draw order.
// Game IDs identify the same game on every day; the draw time may differ.
var catalog = map[time.Weekday][]Game{
	time.Sunday: {
		{ID: 1, Name: "Golden Chance", Time: "09:00"},
		{ID: 2, Name: "Mega Draw", Time: "10:30"},
		{ID: 4, Name: "Lucky Fortune", Time: "12:00"},
		{ID: 5, Name: "Diamond Plus", Time: "13:30"},
		{ID: 7, Name: "Royal King", Time: "15:00"},
		{ID: 8, Name: "Premier Lotto", Time: "16:30"},
		{ID: 10, Name: "Evening Thunder", Time: "19:00"},
		{ID: 12, Name: "Final Draw", Time: "21:30"},
	},
	time.Monday:    weekdayGames,
	time.Tuesday:   weekdayGames,
	time.Wednesday: weekdayGames,
	time.Thursday:  weekdayGames,
	time.Friday:    weekdayGames,
	time.Saturday: {
		{ID: 1, Name: "Golden Chance", Time: "08:00"},
		{ID: 2, Name: "Mega Draw", Time: "09:30"},
		{ID: 3, Name: "Night Star", Time: "11:00"},
		{ID: 4, Name: "Lucky Fortune", Time: "12:30"},
		{ID: 5, Name: "Diamond Plus", Time: "14:00"},
		{ID: 6, Name: "Super Jackpot", Time: "15:30"},
		{ID: 7, Name: "Royal King", Time: "17:00"},
		{ID: 8, Name: "Premier Lotto", Time: "18:30"},
		{ID: 10, Name: "Evening Thunder", Time: "20:30"},
		{ID: 12, Name: "Final Draw", Time: "23:00"},
	},
}

var weekdayGames = []Game{
	{ID: 1, Name: "Golden Chance", Time: "08:00"},
	{ID: 2, Name: "Mega Draw", Time: "09:30"},
	{ID: 3, Name: "Night Star", Time: "11:00"},
	{ID: 4, Name: "Lucky Fortune", Time: "12:30"},
	{ID: 5, Name: "Diamond Plus", Time: "14:00"},
	{ID: 6, Name: "Super Jackpot", Time: "15:30"},
	{ID: 7, Name: "Royal King", Time: "17:00"},
	{ID: 8, Name: "Premier Lotto", Time: "18:30"},
	{ID: 9, Name: "Midnight Special", Time: "19:30"},
	{ID: 10, Name: "Evening Thunder", Time: "20:30"},
	{ID: 11, Name: "Late Night Winner", Time: "21:30"},
	{ID: 12, Name: "Final Draw", Time: "23:00"},
}

// GamesForWeekday returns a copy of the games drawn on the given weekday.
func GamesForWeekday(day time.Weekday) []Game {
	return append([]Game{}, catalog[day]...)
}

// GamesForDate returns the games drawn on the weekday of date (YYYY-MM-DD).
// An unparseable date yields an empty list.
func GamesForDate(date string) []Game {
	d, err := ParseDate(date)
	if err != nil {
		return []Game{}
	}
	return GamesForWeekday(d.Weekday())
}

// FindGame looks up a game by ID in the catalog for date.
func FindGame(date string, id int) (Game, bool) {
	for _, g := range GamesForDate(date) {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}
