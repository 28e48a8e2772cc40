package gateway

import (
	"context"
	"encoding/json"
)

// Client is the outbound messaging gateway port.
type Client interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendPhotoURL(ctx context.Context, chatID, photoURL, caption string) error
	SendPhotoUpload(ctx context.Context, chatID string, photo []byte, filename, caption string) error
	SendPoll(ctx context.Context, chatID, question string, options []string) (string, error)
	GetUpdates(ctx context.Context, offset int64, timeoutSec int, allowedTypes []string) ([]Update, error)
}

// apiEnvelope is the Telegram Bot API response wrapper.
type apiEnvelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// Update is one getUpdates event. Only the event kinds this engine
// consumes are mapped.
type Update struct {
	UpdateID   int64       `json:"update_id"`
	Message    *Message    `json:"message,omitempty"`
	PollAnswer *PollAnswer `json:"poll_answer,omitempty"`
}

type Message struct {
	MessageID int64 `json:"message_id"`
	From      *User `json:"from,omitempty"`
	Chat      Chat  `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// PollAnswer is one respondent's vote event. OptionIDs are zero-based
// indexes into the options the poll was sent with.
type PollAnswer struct {
	PollID    string `json:"poll_id"`
	User      User   `json:"user"`
	OptionIDs []int  `json:"option_ids"`
}

// sentPollResult is the slice of the sendPoll result needed to
// correlate later answers.
type sentPollResult struct {
	Poll struct {
		ID string `json:"id"`
	} `json:"poll"`
}
