package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flota85000/Meta-Bot/internal/domain"
	"github.com/flota85000/Meta-Bot/internal/gateway"
	"github.com/flota85000/Meta-Bot/internal/media"
	"github.com/flota85000/Meta-Bot/internal/repository"
)

// errInvalidPollFormat marks a poll record whose body cannot be laid
// out as a dispatchable poll. The record is counted and left alone;
// retrying cannot fix its content.
var errInvalidPollFormat = errors.New("format_sondage_invalide")

// Config carries the tunables of a delivery pass.
type Config struct {
	Location *time.Location
	// SendWindow bounds how far in the past a pending record may be
	// scheduled and still go out. Zero disables the lower bound.
	SendWindow time.Duration
}

// Report aggregates the outcome of one delivery pass.
type Report struct {
	Records      int
	Due          int
	Sent         int
	Failed       int
	InvalidPolls int
}

// Engine runs one delivery pass over the persisted schedule: select
// due pending records, render per format, dispatch through the
// gateway, then mark successes sent in a single batched round-trip.
type Engine struct {
	store    repository.ScheduleRepository
	gateway  gateway.Client
	media    media.Resolver
	registry *PollRegistry
	logger   *zap.Logger
	cfg      Config
}

func NewEngine(
	store repository.ScheduleRepository,
	gw gateway.Client,
	mediaResolver media.Resolver,
	registry *PollRegistry,
	logger *zap.Logger,
	cfg Config,
) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Engine{
		store:    store,
		gateway:  gw,
		media:    mediaResolver,
		registry: registry,
		logger:   logger,
		cfg:      cfg,
	}
}

// RunOnce executes one delivery pass anchored at now. Per-record
// failures are logged and counted; only store errors abort the pass.
func (e *Engine) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	var report Report

	records, err := e.store.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("delivery pass aborted: %w", err)
	}
	report.Records = len(records)

	var sentKeys []domain.RecordKey
	for i := range records {
		record := &records[i]
		if record.Status != domain.StatusPending || !record.HasContent() {
			continue
		}

		scheduledAt, err := record.ScheduledAt(e.cfg.Location)
		if err != nil {
			report.Failed++
			e.logger.Warn("record has unparsable schedule timestamp",
				zap.String("key", record.Key().String()),
				zap.Error(err),
			)
			continue
		}
		if scheduledAt.After(now) {
			continue
		}
		if e.cfg.SendWindow > 0 && scheduledAt.Before(now.Add(-e.cfg.SendWindow)) {
			continue
		}
		report.Due++

		if err := e.dispatch(ctx, record); err != nil {
			report.Failed++
			if errors.Is(err, errInvalidPollFormat) {
				report.InvalidPolls++
			}
			e.logger.Warn("record delivery failed",
				zap.String("key", record.Key().String()),
				zap.String("format", record.Format.String()),
				zap.Error(err),
			)
			continue
		}

		report.Sent++
		sentKeys = append(sentKeys, record.Key())
	}

	if err := e.store.MarkStatus(ctx, sentKeys, domain.StatusSent); err != nil {
		return report, fmt.Errorf("failed to mark %d records sent: %w", len(sentKeys), err)
	}

	e.logger.Info("delivery pass finished",
		zap.Int("records", report.Records),
		zap.Int("due", report.Due),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("invalidPolls", report.InvalidPolls),
	)
	return report, nil
}

func (e *Engine) dispatch(ctx context.Context, record *domain.SendRecord) error {
	switch record.Format {
	case domain.FormatPoll:
		return e.sendPoll(ctx, record)
	case domain.FormatImage:
		return e.sendImage(ctx, record)
	default:
		return e.gateway.SendMessage(ctx, record.ChatID, textBody(record))
	}
}

// textBody appends the media reference on its own line so a degraded
// image record still carries the link.
func textBody(record *domain.SendRecord) string {
	mediaURL := strings.TrimSpace(record.MediaURL)
	if mediaURL == "" {
		return record.Message
	}
	return record.Message + "\n" + mediaURL
}

func (e *Engine) sendImage(ctx context.Context, record *domain.SendRecord) error {
	if strings.TrimSpace(record.MediaURL) == "" {
		return e.gateway.SendMessage(ctx, record.ChatID, record.Message)
	}

	asset, err := e.media.Resolve(ctx, record.MediaURL)
	if err != nil {
		e.logger.Warn("media reference degraded to text",
			zap.String("key", record.Key().String()),
			zap.String("mediaUrl", record.MediaURL),
			zap.Error(err),
		)
		return e.gateway.SendMessage(ctx, record.ChatID, textBody(record))
	}

	if asset.IsUpload() {
		return e.gateway.SendPhotoUpload(ctx, record.ChatID, asset.Data, asset.Filename, record.Message)
	}
	return e.gateway.SendPhotoURL(ctx, record.ChatID, asset.DirectURL, record.Message)
}

func (e *Engine) sendPoll(ctx context.Context, record *domain.SendRecord) error {
	label, question, options, err := parsePollBody(record.Message)
	if err != nil {
		return fmt.Errorf("%w: %s", errInvalidPollFormat, record.Key())
	}

	decorated := fmt.Sprintf("📅 %s — %s", label, question)
	pollID, err := e.gateway.SendPoll(ctx, record.ChatID, decorated, options)
	if err != nil {
		return err
	}

	e.registry.Register(pollID, PollRegistration{
		Subscriber:   record.Subscriber,
		Organization: record.Organization,
		Program:      record.Program,
		Season:       record.Season,
		RunIndex:     record.RunIndex,
		ContentType:  record.ContentType,
		Question:     decorated,
		Options:      options,
	})
	return nil
}

// parsePollBody reads the poll layout back out of a record body: date
// label on line 1, question on line 2, one raw option per line after.
func parsePollBody(body string) (label, question string, options []string, err error) {
	lines := strings.Split(body, "\n")
	if len(lines) < 2 {
		return "", "", nil, fmt.Errorf("%w: poll body needs a label and a question", domain.ErrValidation)
	}

	label = strings.TrimSpace(lines[0])
	question = strings.TrimSpace(lines[1])
	if label == "" || question == "" {
		return "", "", nil, fmt.Errorf("%w: poll body needs a label and a question", domain.ErrValidation)
	}

	options, err = domain.PollOptionsFromRaw(lines[2:])
	if err != nil {
		return "", "", nil, err
	}
	return label, question, options, nil
}
