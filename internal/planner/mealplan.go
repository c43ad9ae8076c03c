package planner

import (
	"sort"
	"strings"
	"time"
)

// Week lists the plan's day keys in calendar order.
var Week = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeeklyPlan maps a day name to the ordered dish IDs planned for it.
// A dish ID may repeat, meaning several portions of that dish.
type WeeklyPlan map[string][]string

// DayOf returns the plan key for the given date.
func DayOf(t time.Time) string {
	return t.Weekday().String()
}

// DishIDs flattens the whole plan: the days of Week in order, then any other
// day keys sorted by name.
func (p WeeklyPlan) DishIDs() []string {
	var ids []string
	for _, day := range p.days() {
		ids = append(ids, p[day]...)
	}
	return ids
}

// ForDay returns the dish IDs planned for day, matching the key case-insensitively.
func (p WeeklyPlan) ForDay(day string) []string {
	if ids, ok := p[day]; ok {
		return ids
	}
	for k, ids := range p {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(day)) {
			return ids
		}
	}
	return nil
}

func (p WeeklyPlan) days() []string {
	known := make(map[string]bool, len(Week))
	var days []string
	for _, d := range Week {
		known[d] = true
		if _, ok := p[d]; ok {
			days = append(days, d)
		}
	}
	var extra []string
	for d := range p {
		if !known[d] {
			extra = append(extra, d)
		}
	}
	sort.Strings(extra)
	return append(days, extra...)
}

// WeekStart returns the Monday of the week containing t, at midnight.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
