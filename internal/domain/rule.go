package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxSlotsPerDay bounds the number of per-day send slots a rule can carry.
const MaxSlotsPerDay = 3

var weekdayNames = map[string]time.Weekday{
	"lundi":     time.Monday,
	"mardi":     time.Tuesday,
	"mercredi":  time.Wednesday,
	"jeudi":     time.Thursday,
	"vendredi":  time.Friday,
	"samedi":    time.Saturday,
	"dimanche":  time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// WeekdaySet is the set of weekdays a rule sends on. An empty set
// matches every day.
type WeekdaySet map[time.Weekday]struct{}

// ParseWeekdaySet parses a comma or semicolon separated list of day
// names (French or English). Unknown tokens are ignored.
func ParseWeekdaySet(s string) WeekdaySet {
	set := WeekdaySet{}
	normalized := strings.ReplaceAll(s, ";", ",")
	for _, part := range strings.Split(normalized, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if day, ok := weekdayNames[name]; ok {
			set[day] = struct{}{}
		}
	}
	return set
}

// Matches reports whether d falls on a diffusion day.
func (s WeekdaySet) Matches(d time.Time) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[d.Weekday()]
	return ok
}

func (s WeekdaySet) String() string {
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	french := map[time.Weekday]string{
		time.Monday:    "lundi",
		time.Tuesday:   "mardi",
		time.Wednesday: "mercredi",
		time.Thursday:  "jeudi",
		time.Friday:    "vendredi",
		time.Saturday:  "samedi",
		time.Sunday:    "dimanche",
	}
	names := make([]string, 0, len(s))
	for _, day := range order {
		if _, ok := s[day]; ok {
			names = append(names, french[day])
		}
	}
	return strings.Join(names, ",")
}

// Slot is one per-day send time, optionally bound to a content type.
type Slot struct {
	Time        string // HH:MM:SS, empty means the slot is unused
	ContentType string // optional override, defaults come from the catalog
}

// RecurrenceRule describes one subscriber's recurring diffusion plan.
// Rules are maintained by roster management and are read-only here.
type RecurrenceRule struct {
	Subscriber   string
	Organization string
	Email        string
	ChatID       string
	Program      string
	Season       int
	StartDate    time.Time // date component only
	EndDate      string    // YYYY-MM-DD, filled once projected
	Weekdays     WeekdaySet
	Slots        []Slot
}

// ActiveSlots returns the configured slots that carry a send time.
func (r *RecurrenceRule) ActiveSlots() []Slot {
	active := make([]Slot, 0, len(r.Slots))
	for _, slot := range r.Slots {
		if strings.TrimSpace(slot.Time) != "" {
			active = append(active, slot)
		}
	}
	return active
}

// RunIndexFor returns the 1-based count of diffusion days between the
// rule's start date and d inclusive. Content progression follows this
// ordinal, not the calendar date, so a missed day never skips content.
func (r *RecurrenceRule) RunIndexFor(d time.Time) int {
	start := DateOnly(r.StartDate)
	target := DateOnly(d)
	if target.Before(start) {
		return 0
	}

	count := 0
	for cur := start; !cur.After(target); cur = cur.AddDate(0, 0, 1) {
		if r.Weekdays.Matches(cur) {
			count++
		}
	}
	return count
}

func (r *RecurrenceRule) Validate() error {
	if strings.TrimSpace(r.Subscriber) == "" {
		return fmt.Errorf("%w: subscriber is required", ErrValidation)
	}
	if strings.TrimSpace(r.ChatID) == "" {
		return fmt.Errorf("%w: chat id is required", ErrValidation)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrValidation)
	}
	if len(r.Slots) > MaxSlotsPerDay {
		return fmt.Errorf("%w: at most %d slots per day", ErrValidation, MaxSlotsPerDay)
	}
	return nil
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
