package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flota85000/Meta-Bot/internal/delivery"
	"github.com/flota85000/Meta-Bot/internal/domain"
	"github.com/flota85000/Meta-Bot/internal/gateway"
	"github.com/flota85000/Meta-Bot/internal/repository"
)

const (
	pollTimeoutSec = 2

	clarificationPrompt = "Vous avez choisi \"Other\". Pouvez-vous préciser votre réponse ?"
)

var allowedUpdateTypes = []string{"poll_answer", "message"}

// Report aggregates the outcome of one collection pass.
type Report struct {
	Updates        int
	Answers        int
	Unattributed   int
	Clarifications int
	Comments       int
	Failed         int
}

// Collector drains pending gateway updates: poll answers are appended
// to the answer store, and free-text replies from respondents with an
// open clarification are merged into their answer row.
type Collector struct {
	gateway  gateway.Client
	registry *delivery.PollRegistry
	answers  repository.AnswerRepository
	logger   *zap.Logger

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	offset  int64
	pending map[int64]string // respondent id -> answer row id awaiting clarification
}

func NewCollector(
	gw gateway.Client,
	registry *delivery.PollRegistry,
	answers repository.AnswerRepository,
	logger *zap.Logger,
) *Collector {
	return &Collector{
		gateway:  gw,
		registry: registry,
		answers:  answers,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		pending:  make(map[int64]string),
	}
}

// CollectOnce drains the updates currently queued at the gateway and
// acknowledges them by advancing the offset past the highest update
// id. Per-update failures are logged and counted; duplicates from a
// re-delivered batch are accepted as extra rows.
func (c *Collector) CollectOnce(ctx context.Context) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report Report

	updates, err := c.gateway.GetUpdates(ctx, c.offset, pollTimeoutSec, allowedUpdateTypes)
	if err != nil {
		return report, fmt.Errorf("collection pass aborted: %w", err)
	}
	report.Updates = len(updates)

	var maxID int64
	for _, update := range updates {
		if update.UpdateID > maxID {
			maxID = update.UpdateID
		}

		switch {
		case update.PollAnswer != nil:
			c.handlePollAnswer(ctx, update.PollAnswer, &report)
		case update.Message != nil:
			c.handleMessage(ctx, update.Message, &report)
		}
	}

	if maxID > 0 {
		c.offset = maxID + 1
		if _, err := c.gateway.GetUpdates(ctx, c.offset, 0, allowedUpdateTypes); err != nil {
			c.logger.Warn("offset acknowledgement failed", zap.Error(err))
		}
	}

	c.logger.Info("collection pass finished",
		zap.Int("updates", report.Updates),
		zap.Int("answers", report.Answers),
		zap.Int("unattributed", report.Unattributed),
		zap.Int("clarifications", report.Clarifications),
		zap.Int("comments", report.Comments),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (c *Collector) handlePollAnswer(ctx context.Context, vote *gateway.PollAnswer, report *Report) {
	registration, registered := c.registry.Lookup(vote.PollID)
	if !registered {
		report.Unattributed++
		c.logger.Warn("poll answer without registration, recording without origin",
			zap.String("pollId", vote.PollID),
			zap.Int64("respondentId", vote.User.ID),
		)
	}

	response, hasOther := selectedOptions(vote.OptionIDs, registration.Options)

	answer := &domain.PollAnswer{
		ID:           c.newID(),
		RespondentID: vote.User.ID,
		FirstName:    vote.User.FirstName,
		LastName:     vote.User.LastName,
		Username:     vote.User.Username,
		Organization: registration.Organization,
		AnsweredAt:   c.now(),
		Program:      registration.Program,
		Season:       registration.Season,
		RunIndex:     registration.RunIndex,
		ContentType:  registration.ContentType,
		Question:     registration.Question,
		Response:     response,
	}

	if err := c.answers.Append(ctx, answer); err != nil {
		report.Failed++
		c.logger.Warn("failed to record poll answer",
			zap.String("pollId", vote.PollID),
			zap.Error(err),
		)
		return
	}
	report.Answers++

	if hasOther {
		c.requestClarification(ctx, vote.User.ID, answer.ID, report)
	}
}

// requestClarification sends the one-shot follow-up prompt and keeps
// the answer row id so the next free-text reply lands in its comment
// column. A newer "Other" vote from the same respondent rebinds the
// pending entry.
func (c *Collector) requestClarification(ctx context.Context, respondentID int64, answerID string, report *Report) {
	chatID := gateway.ChatIDString(respondentID)
	if err := c.gateway.SendMessage(ctx, chatID, clarificationPrompt); err != nil {
		report.Failed++
		c.logger.Warn("failed to send clarification prompt",
			zap.Int64("respondentId", respondentID),
			zap.Error(err),
		)
		return
	}
	c.pending[respondentID] = answerID
	report.Clarifications++
}

func (c *Collector) handleMessage(ctx context.Context, message *gateway.Message, report *Report) {
	if message.From == nil {
		return
	}
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	answerID, ok := c.pending[message.From.ID]
	if !ok {
		return
	}

	if err := c.answers.SetComment(ctx, answerID, text); err != nil {
		report.Failed++
		c.logger.Warn("failed to merge clarification comment",
			zap.Int64("respondentId", message.From.ID),
			zap.String("answerId", answerID),
			zap.Error(err),
		)
		if !repository.IsNotFound(err) {
			return
		}
	} else {
		report.Comments++
	}
	delete(c.pending, message.From.ID)
}

// selectedOptions maps zero-based option ids back to their texts and
// reports whether the free-text option was among them. Without a
// registration the option list is empty and ids are recorded as bare
// ordinals.
func selectedOptions(optionIDs []int, options []string) (string, bool) {
	texts := make([]string, 0, len(optionIDs))
	hasOther := false
	for _, id := range optionIDs {
		if id >= 0 && id < len(options) {
			texts = append(texts, options[id])
			if options[id] == domain.OtherOption {
				hasOther = true
			}
			continue
		}
		texts = append(texts, strconv.Itoa(id))
	}
	return strings.Join(texts, "; "), hasOther
}
