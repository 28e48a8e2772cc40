package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flota85000/Meta-Bot/internal/catalog"
	"github.com/flota85000/Meta-Bot/internal/domain"
	"github.com/flota85000/Meta-Bot/internal/repository"
)

const dateLayout = "2006-01-02"

// Config carries the tunables of a generation pass.
type Config struct {
	Location      *time.Location
	WindowDays    int
	RetentionDays int
	Concurrency   int
}

// Report aggregates the outcome of one generation pass.
type Report struct {
	RulesTotal     int
	RulesSkipped   int
	SkipReasons    map[string]int
	Candidates     int
	Inserted       int
	Purged         int64
	ContentFilled  int
	ContentMissing int
	EndDatesFilled int
}

// Generator materializes pending send records from the recurrence
// roster over a rolling window. One pass never aborts on a malformed
// rule; it skips, counts, and keeps going.
type Generator struct {
	rules   repository.RuleRepository
	store   repository.ScheduleRepository
	content repository.CatalogRepository
	logger  *zap.Logger
	cfg     Config
}

func NewGenerator(
	rules repository.RuleRepository,
	store repository.ScheduleRepository,
	content repository.CatalogRepository,
	logger *zap.Logger,
	cfg Config,
) *Generator {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Generator{
		rules:   rules,
		store:   store,
		content: content,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run executes one full generation pass anchored at now.
func (g *Generator) Run(ctx context.Context, now time.Time) (Report, error) {
	report := Report{SkipReasons: map[string]int{}}
	today := domain.DateOnly(now.In(g.cfg.Location))

	rules, err := g.rules.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("generation pass aborted: %w", err)
	}
	report.RulesTotal = len(rules)

	candidates, err := g.expand(ctx, rules, today, &report)
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	cutoff := today.AddDate(0, 0, -g.cfg.RetentionDays).Format(dateLayout)
	purged, err := g.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("generation pass aborted: %w", err)
	}
	report.Purged = purged

	existing, err := g.store.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("generation pass aborted: %w", err)
	}
	fresh := mergeExistingWins(candidates, existing)

	freshKeys := make(map[domain.RecordKey]struct{}, len(fresh))
	for i := range fresh {
		freshKeys[fresh[i].Key()] = struct{}{}
	}

	merged := make([]domain.SendRecord, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	merged = append(merged, fresh...)

	filled := g.fillContent(ctx, merged, &report)

	// Persist fresh rows plus existing rows that just gained content.
	// Existing rows whose content survived the merge stay untouched.
	toWrite := make([]domain.SendRecord, 0, len(fresh)+len(filled))
	for i := range merged {
		key := merged[i].Key()
		_, isFresh := freshKeys[key]
		_, wasFilled := filled[key]
		if isFresh || wasFilled {
			toWrite = append(toWrite, merged[i])
		}
	}

	sort.SliceStable(toWrite, func(i, j int) bool {
		if toWrite[i].Date != toWrite[j].Date {
			return toWrite[i].Date < toWrite[j].Date
		}
		return toWrite[i].Time < toWrite[j].Time
	})
	if err := g.store.BatchUpsert(ctx, toWrite); err != nil {
		return report, fmt.Errorf("generation pass aborted: %w", err)
	}
	report.Inserted = len(toWrite)

	g.fillEndDates(ctx, rules, &report)

	g.logger.Info("generation pass finished",
		zap.Int("rules", report.RulesTotal),
		zap.Int("rulesSkipped", report.RulesSkipped),
		zap.Int("candidates", report.Candidates),
		zap.Int("inserted", report.Inserted),
		zap.Int64("purged", report.Purged),
		zap.Int("contentFilled", report.ContentFilled),
		zap.Int("contentMissing", report.ContentMissing),
		zap.Int("endDatesFilled", report.EndDatesFilled),
	)
	return report, nil
}

// expand materializes one pending record per in-window diffusion date
// and active slot. Rules are expanded in parallel; the merge that
// follows stays single-threaded.
func (g *Generator) expand(ctx context.Context, rules []domain.RecurrenceRule, today time.Time, report *Report) ([]domain.SendRecord, error) {
	var (
		mu      sync.Mutex
		records []domain.SendRecord
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.Concurrency)

	for i := range rules {
		rule := rules[i]

		if reason := skipReason(&rule); reason != "" {
			report.RulesSkipped++
			report.SkipReasons[reason]++
			g.logger.Warn("rule skipped",
				zap.String("subscriber", rule.Subscriber),
				zap.String("program", rule.Program),
				zap.String("reason", reason),
			)
			continue
		}

		group.Go(func() error {
			expanded := expandRule(&rule, today, g.cfg.WindowDays)

			mu.Lock()
			records = append(records, expanded...)
			mu.Unlock()
			return groupCtx.Err()
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("rule expansion interrupted: %w", err)
	}
	return records, nil
}

func skipReason(rule *domain.RecurrenceRule) string {
	if strings.TrimSpace(rule.Subscriber) == "" {
		return "missing_subscriber"
	}
	if strings.TrimSpace(rule.ChatID) == "" {
		return "missing_chat_id"
	}
	if rule.StartDate.IsZero() {
		return "invalid_start_date"
	}
	if len(rule.ActiveSlots()) == 0 {
		return "no_slot_times"
	}
	return ""
}

func expandRule(rule *domain.RecurrenceRule, today time.Time, windowDays int) []domain.SendRecord {
	start := domain.DateOnly(rule.StartDate)
	records := make([]domain.SendRecord, 0, windowDays*len(rule.Slots))

	for offset := 0; offset < windowDays; offset++ {
		date := today.AddDate(0, 0, offset)
		if date.Before(start) || !rule.Weekdays.Matches(date) {
			continue
		}

		runIndex := rule.RunIndexFor(date)
		for _, slot := range rule.ActiveSlots() {
			records = append(records, domain.SendRecord{
				Subscriber:   rule.Subscriber,
				Organization: rule.Organization,
				Program:      rule.Program,
				Season:       rule.Season,
				ChatID:       rule.ChatID,
				Date:         date.Format(dateLayout),
				Time:         slot.Time,
				ContentType:  slot.ContentType,
				RunIndex:     runIndex,
				Format:       domain.FormatText,
				Status:       domain.StatusPending,
			})
		}
	}
	return records
}

// mergeExistingWins drops candidates whose key already exists in the
// store, so manual edits survive regeneration and a sent record is
// never reset. Duplicate candidate keys keep the first occurrence.
func mergeExistingWins(candidates, existing []domain.SendRecord) []domain.SendRecord {
	seen := make(map[domain.RecordKey]struct{}, len(existing)+len(candidates))
	for i := range existing {
		seen[existing[i].Key()] = struct{}{}
	}

	fresh := make([]domain.SendRecord, 0, len(candidates))
	for i := range candidates {
		key := candidates[i].Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, candidates[i])
	}
	return fresh
}

// fillContent resolves catalog entries for every merged record still
// lacking content, so an entry added to the catalog after a record was
// first generated lands on the next pass. The slot ordinal is the
// 1-based rank of the record's time among all records of the same
// subscriber, program, season and date, persisted or fresh. Returns
// the keys that gained content.
func (g *Generator) fillContent(ctx context.Context, records []domain.SendRecord, report *Report) map[domain.RecordKey]struct{} {
	resolver := catalog.NewResolver(g.content)
	filled := make(map[domain.RecordKey]struct{})

	groups := make(map[string][]*domain.SendRecord)
	for i := range records {
		r := &records[i]
		groupKey := fmt.Sprintf("%s|%s|%d|%s", r.Subscriber, r.Program, r.Season, r.Date)
		groups[groupKey] = append(groups[groupKey], r)
	}

	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Time < group[j].Time })

		for ordinal, record := range group {
			if record.HasContent() {
				continue
			}

			entry, ok, err := resolver.Resolve(ctx, record.Program, record.Season, record.RunIndex, ordinal+1)
			if err != nil {
				report.ContentMissing++
				g.logger.Warn("catalog lookup failed",
					zap.String("program", record.Program),
					zap.Int("season", record.Season),
					zap.Int("runIndex", record.RunIndex),
					zap.Error(err),
				)
				continue
			}
			if !ok {
				report.ContentMissing++
				continue
			}

			record.Format = entry.Format
			record.MediaURL = entry.MediaURL
			if record.ContentType == "" {
				record.ContentType = entry.TypeLabel
			}
			if entry.Format == domain.FormatPoll {
				record.Message = catalog.ComposePollMessage(record.Date, entry)
			} else {
				record.Message = catalog.ComposeMessage(entry)
			}
			filled[record.Key()] = struct{}{}
			report.ContentFilled++
		}
	}
	return filled
}

// fillEndDates projects each rule's final diffusion date from the
// catalog length and batch-fills the roster column where still empty.
func (g *Generator) fillEndDates(ctx context.Context, rules []domain.RecurrenceRule, report *Report) {
	maxDays := make(map[string]int)
	updates := make([]repository.RuleEndDate, 0, len(rules))

	for i := range rules {
		rule := &rules[i]
		if rule.EndDate != "" || rule.StartDate.IsZero() || strings.TrimSpace(rule.Subscriber) == "" {
			continue
		}

		cacheKey := fmt.Sprintf("%s|%d", rule.Program, rule.Season)
		maxDay, ok := maxDays[cacheKey]
		if !ok {
			var err error
			maxDay, err = g.content.MaxDay(ctx, rule.Program, rule.Season)
			if err != nil {
				g.logger.Warn("catalog length lookup failed",
					zap.String("program", rule.Program),
					zap.Int("season", rule.Season),
					zap.Error(err),
				)
				continue
			}
			maxDays[cacheKey] = maxDay
		}

		endDate, ok := projectEndDate(rule, maxDay)
		if !ok {
			continue
		}
		updates = append(updates, repository.RuleEndDate{
			Subscriber: rule.Subscriber,
			Program:    rule.Program,
			Season:     rule.Season,
			EndDate:    endDate,
		})
	}

	if len(updates) == 0 {
		return
	}
	if err := g.rules.FillEndDates(ctx, updates); err != nil {
		g.logger.Warn("end date fill failed", zap.Error(err))
		return
	}
	report.EndDatesFilled = len(updates)
}

// projectEndDate walks the rule's weekday set from its start date
// until maxDay diffusion days have passed.
func projectEndDate(rule *domain.RecurrenceRule, maxDay int) (string, bool) {
	if maxDay <= 0 {
		return "", false
	}

	count := 0
	cur := domain.DateOnly(rule.StartDate)
	for i := 0; i < maxDay*7+7; i++ {
		if rule.Weekdays.Matches(cur) {
			count++
			if count == maxDay {
				return cur.Format(dateLayout), true
			}
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return "", false
}
