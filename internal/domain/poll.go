package domain

import (
	"fmt"
	"strings"
	"time"
)

// OtherOption is the synthetic free-text answer appended to every
// poll. Selecting it triggers the clarification sub-dialog.
const OtherOption = "Other"

// MaxPollOptions is the gateway's hard cap on answer options.
const MaxPollOptions = 10

// PollOptionsFromRaw turns raw answer lines into the option list a
// poll is dispatched with. At least two usable raw options are
// required; "Other" is appended when missing and the list is capped
// at MaxPollOptions.
func PollOptionsFromRaw(raw []string) ([]string, error) {
	options := make([]string, 0, len(raw)+1)
	for _, option := range raw {
		trimmed := strings.TrimSpace(option)
		if trimmed != "" {
			options = append(options, trimmed)
		}
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("%w: poll needs at least two options, got %d", ErrValidation, len(options))
	}

	hasOther := false
	for _, option := range options {
		if option == OtherOption {
			hasOther = true
			break
		}
	}
	if !hasOther {
		options = append(options, OtherOption)
	}

	if len(options) > MaxPollOptions {
		options = options[:MaxPollOptions]
	}
	return options, nil
}

// PollAnswer is one respondent's answer to one dispatched poll.
// Origin metadata is denormalized from the in-memory registration at
// collection time; it is blank when the registration expired or was
// lost to a process restart.
type PollAnswer struct {
	ID           string
	RespondentID int64
	FirstName    string
	LastName     string
	Username     string
	Organization string
	AnsweredAt   time.Time
	Program      string
	Season       int
	RunIndex     int
	ContentType  string
	Question     string
	Response     string
	Comment      string
}
