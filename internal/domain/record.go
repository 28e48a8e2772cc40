package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the delivery state of a scheduled send.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent:
		return true
	}
	return false
}

// ParseStatusFromString accepts canonical values plus the legacy
// oui/non flags carried over from older planning sheets.
func ParseStatusFromString(s string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "non", "":
		normalized = string(StatusPending)
	case "oui":
		normalized = string(StatusSent)
	}

	st := Status(normalized)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Format represents the rendering format of a scheduled send.
type Format string

const (
	FormatText  Format = "text"
	FormatImage Format = "image"
	FormatPoll  Format = "poll"
)

func (f Format) String() string { return string(f) }

func (f Format) IsValid() bool {
	switch f {
	case FormatText, FormatImage, FormatPoll:
		return true
	}
	return false
}

// ParseFormatFromString accepts canonical values plus the French
// labels used by the content catalog (texte, sondage).
func ParseFormatFromString(s string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "texte", "":
		normalized = string(FormatText)
	case "sondage":
		normalized = string(FormatPoll)
	}

	f := Format(normalized)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid format %q", ErrValidation, s)
	}
	return f, nil
}

// RecordKey identifies one logical scheduled send. The content-type
// label is intentionally excluded so catalog relabeling does not
// produce duplicate rows.
type RecordKey struct {
	Subscriber string
	Program    string
	Season     int
	ChatID     string
	Date       string
	Time       string
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%s|%s|%s", k.Subscriber, k.Program, k.Season, k.ChatID, k.Date, k.Time)
}

// SendRecord is the unit of scheduling and delivery.
type SendRecord struct {
	Subscriber   string
	Organization string
	Program      string
	Season       int
	ChatID       string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM:SS
	ContentType  string
	RunIndex     int
	Message      string
	Format       Format
	MediaURL     string
	Status       Status
}

func (r *SendRecord) Key() RecordKey {
	return RecordKey{
		Subscriber: r.Subscriber,
		Program:    r.Program,
		Season:     r.Season,
		ChatID:     r.ChatID,
		Date:       r.Date,
		Time:       r.Time,
	}
}

// HasContent reports whether the record carries a deliverable message.
func (r *SendRecord) HasContent() bool {
	return strings.TrimSpace(r.Message) != ""
}

// ScheduledAt combines the calendar date and time-of-day in loc.
func (r *SendRecord) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid schedule timestamp %q %q", ErrValidation, r.Date, r.Time)
	}
	return ts, nil
}

func (r *SendRecord) Validate() error {
	if strings.TrimSpace(r.Subscriber) == "" {
		return fmt.Errorf("%w: subscriber is required", ErrValidation)
	}
	if strings.TrimSpace(r.ChatID) == "" {
		return fmt.Errorf("%w: chat id is required", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("%w: invalid date %q", ErrValidation, r.Date)
	}
	if _, err := time.Parse("15:04:05", r.Time); err != nil {
		return fmt.Errorf("%w: invalid time %q", ErrValidation, r.Time)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	if r.Format != "" && !r.Format.IsValid() {
		return fmt.Errorf("%w: invalid format %q", ErrValidation, r.Format)
	}
	return nil
}

// NormalizeProgram left-pads numeric program ids to the canonical
// three-digit form used by catalog tab names.
func NormalizeProgram(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	for len(trimmed) < 3 {
		trimmed = "0" + trimmed
	}
	return trimmed
}

// NormalizeChatID strips the trailing ".0" that numeric chat ids pick
// up when they round-trip through spreadsheet exports.
func NormalizeChatID(s string) string {
	trimmed := strings.TrimSpace(s)
	return strings.TrimSuffix(trimmed, ".0")
}

// NormalizeClock canonicalizes a time-of-day into HH:MM:SS. Empty or
// unparsable input yields the empty string.
func NormalizeClock(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	for _, layout := range []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("15:04:05")
		}
	}
	return ""
}
