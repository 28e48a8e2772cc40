package repository

import (
	"strings"
	"time"

	"github.com/flota85000/Meta-Bot/internal/domain"
)

// ScheduleEntryModel is the persistence model for the schedule table.
// The unique index over the six key columns enforces the idempotency
// invariant: at most one row per logical scheduled send.
type ScheduleEntryModel struct {
	ID           uint          `gorm:"primaryKey;autoIncrement"`
	Subscriber   string        `gorm:"type:varchar(255);not null;uniqueIndex:idx_schedule_identity,priority:1"`
	Program      string        `gorm:"type:varchar(10);not null;uniqueIndex:idx_schedule_identity,priority:2"`
	Season       int           `gorm:"not null;uniqueIndex:idx_schedule_identity,priority:3"`
	ChatID       string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_schedule_identity,priority:4"`
	Date         string        `gorm:"type:varchar(10);not null;uniqueIndex:idx_schedule_identity,priority:5"`
	Time         string        `gorm:"type:varchar(8);not null;uniqueIndex:idx_schedule_identity,priority:6"`
	Organization string        `gorm:"type:varchar(255)"`
	ContentType  string        `gorm:"type:varchar(64)"`
	RunIndex     int           `gorm:"not null;default:0"`
	Message      string        `gorm:"type:text"`
	Format       domain.Format `gorm:"type:varchar(10)"`
	MediaURL     string        `gorm:"type:text"`
	Status       domain.Status `gorm:"type:varchar(10);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ScheduleEntryModel) TableName() string {
	return "schedule_entries"
}

// PollAnswerModel is the persistence model for collected poll answers.
type PollAnswerModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	RespondentID int64  `gorm:"not null"`
	FirstName    string `gorm:"type:varchar(255)"`
	LastName     string `gorm:"type:varchar(255)"`
	Username     string `gorm:"type:varchar(255)"`
	Organization string `gorm:"type:varchar(255)"`
	AnsweredAt   time.Time
	Program      string `gorm:"type:varchar(10)"`
	Season       int
	RunIndex     int
	ContentType  string `gorm:"type:varchar(64)"`
	Question     string `gorm:"type:text"`
	Response     string `gorm:"type:text"`
	Comment      string `gorm:"type:text"`
	CreatedAt    time.Time
}

func (PollAnswerModel) TableName() string {
	return "poll_answers"
}

// RecurrenceRuleModel is the persistence model for the read-only
// roster of recurrence rules. Columns are loose text on purpose; the
// conversion to domain normalizes and validates once at ingestion.
type RecurrenceRuleModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Subscriber   string `gorm:"type:varchar(255)"`
	Organization string `gorm:"type:varchar(255)"`
	Email        string `gorm:"type:varchar(255)"`
	ChatID       string `gorm:"type:varchar(64)"`
	Program      string `gorm:"type:varchar(10)"`
	Season       int    `gorm:"not null;default:1"`
	StartDate    string `gorm:"type:varchar(10)"`
	EndDate      string `gorm:"type:varchar(10)"`
	Weekdays     string `gorm:"type:varchar(255)"`
	Slot1Time    string `gorm:"type:varchar(16)"`
	Slot1Type    string `gorm:"type:varchar(64)"`
	Slot2Time    string `gorm:"type:varchar(16)"`
	Slot2Type    string `gorm:"type:varchar(64)"`
	Slot3Time    string `gorm:"type:varchar(16)"`
	Slot3Type    string `gorm:"type:varchar(64)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (RecurrenceRuleModel) TableName() string {
	return "recurrence_rules"
}

// ContentEntryModel is the persistence model for the content catalog.
type ContentEntryModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Program   string `gorm:"type:varchar(10);not null;index:idx_content_program_season,priority:1"`
	Season    int    `gorm:"not null;index:idx_content_program_season,priority:2"`
	Day       int    `gorm:"not null"`
	TypeID    int    `gorm:"not null;default:0"`
	TypeLabel string `gorm:"type:varchar(64)"`
	Text      string `gorm:"type:text"`
	Format    string `gorm:"type:varchar(10)"`
	MediaURL  string `gorm:"type:text"`
	Options   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ContentEntryModel) TableName() string {
	return "content_entries"
}

func scheduleModelFromDomain(r *domain.SendRecord) *ScheduleEntryModel {
	if r == nil {
		return nil
	}

	return &ScheduleEntryModel{
		Subscriber:   r.Subscriber,
		Program:      r.Program,
		Season:       r.Season,
		ChatID:       r.ChatID,
		Date:         r.Date,
		Time:         r.Time,
		Organization: r.Organization,
		ContentType:  r.ContentType,
		RunIndex:     r.RunIndex,
		Message:      r.Message,
		Format:       r.Format,
		MediaURL:     r.MediaURL,
		Status:       r.Status,
	}
}

func scheduleModelToDomain(m *ScheduleEntryModel) *domain.SendRecord {
	if m == nil {
		return nil
	}

	status, err := domain.ParseStatusFromString(string(m.Status))
	if err != nil {
		status = domain.StatusPending
	}
	format, err := domain.ParseFormatFromString(string(m.Format))
	if err != nil {
		format = domain.FormatText
	}

	return &domain.SendRecord{
		Subscriber:   m.Subscriber,
		Organization: m.Organization,
		Program:      domain.NormalizeProgram(m.Program),
		Season:       m.Season,
		ChatID:       domain.NormalizeChatID(m.ChatID),
		Date:         m.Date,
		Time:         m.Time,
		ContentType:  m.ContentType,
		RunIndex:     m.RunIndex,
		Message:      m.Message,
		Format:       format,
		MediaURL:     m.MediaURL,
		Status:       status,
	}
}

func answerModelFromDomain(a *domain.PollAnswer) *PollAnswerModel {
	if a == nil {
		return nil
	}

	return &PollAnswerModel{
		ID:           a.ID,
		RespondentID: a.RespondentID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Username:     a.Username,
		Organization: a.Organization,
		AnsweredAt:   a.AnsweredAt,
		Program:      a.Program,
		Season:       a.Season,
		RunIndex:     a.RunIndex,
		ContentType:  a.ContentType,
		Question:     a.Question,
		Response:     a.Response,
		Comment:      a.Comment,
	}
}

func ruleModelToDomain(m *RecurrenceRuleModel) (*domain.RecurrenceRule, error) {
	if m == nil {
		return nil, nil
	}

	rule := &domain.RecurrenceRule{
		Subscriber:   strings.TrimSpace(m.Subscriber),
		Organization: strings.TrimSpace(m.Organization),
		Email:        strings.TrimSpace(m.Email),
		ChatID:       domain.NormalizeChatID(m.ChatID),
		Program:      domain.NormalizeProgram(m.Program),
		Season:       m.Season,
		EndDate:      strings.TrimSpace(m.EndDate),
		Weekdays:     domain.ParseWeekdaySet(m.Weekdays),
	}
	if rule.Season <= 0 {
		rule.Season = 1
	}

	if trimmed := strings.TrimSpace(m.StartDate); trimmed != "" {
		start, err := time.Parse("2006-01-02", trimmed)
		if err == nil {
			rule.StartDate = start
		}
	}

	slots := []domain.Slot{
		{Time: domain.NormalizeClock(m.Slot1Time), ContentType: strings.TrimSpace(m.Slot1Type)},
		{Time: domain.NormalizeClock(m.Slot2Time), ContentType: strings.TrimSpace(m.Slot2Type)},
		{Time: domain.NormalizeClock(m.Slot3Time), ContentType: strings.TrimSpace(m.Slot3Type)},
	}
	rule.Slots = slots

	return rule, nil
}

func contentModelToDomain(m *ContentEntryModel) *domain.ContentEntry {
	if m == nil {
		return nil
	}

	format, err := domain.ParseFormatFromString(m.Format)
	if err != nil {
		format = domain.FormatText
	}

	season := m.Season
	if season <= 0 {
		season = 1
	}
	day := m.Day
	if day <= 0 {
		day = 1
	}

	return &domain.ContentEntry{
		Program:   domain.NormalizeProgram(m.Program),
		Season:    season,
		Day:       day,
		TypeID:    m.TypeID,
		TypeLabel: strings.TrimSpace(m.TypeLabel),
		Text:      m.Text,
		Format:    format,
		MediaURL:  strings.TrimSpace(m.MediaURL),
		Options:   m.Options,
	}
}
