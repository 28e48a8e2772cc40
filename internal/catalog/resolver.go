package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flota85000/Meta-Bot/internal/domain"
)

// Source provides the catalog rows for one program.
type Source interface {
	GetProgram(ctx context.Context, program string) ([]domain.ContentEntry, error)
}

// Resolver picks the catalog entry for a (program, season, run-index,
// slot) tuple. Program rows are fetched once per resolver lifetime,
// so a generation pass over many rules hits the store once per
// program.
type Resolver struct {
	source Source

	mu    sync.Mutex
	cache map[string][]domain.ContentEntry
}

func NewResolver(source Source) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[string][]domain.ContentEntry),
	}
}

// Resolve returns the entry for the given slot ordinal among the
// candidates matching (program, season, runIndex), ordered by type
// id. The boolean is false when no entry applies: fewer candidates
// than the slot ordinal, or a poll entry whose options cannot form a
// dispatchable option list.
func (r *Resolver) Resolve(ctx context.Context, program string, season, runIndex, slot int) (domain.ContentEntry, bool, error) {
	if slot < 1 {
		return domain.ContentEntry{}, false, fmt.Errorf("%w: slot ordinal %d", domain.ErrValidation, slot)
	}

	entries, err := r.programEntries(ctx, program)
	if err != nil {
		return domain.ContentEntry{}, false, err
	}

	candidates := make([]domain.ContentEntry, 0, 4)
	for _, entry := range entries {
		if entry.Season == season && entry.Day == runIndex {
			candidates = append(candidates, entry)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TypeID < candidates[j].TypeID
	})

	if slot > len(candidates) {
		return domain.ContentEntry{}, false, nil
	}
	entry := candidates[slot-1]

	if entry.Format == domain.FormatPoll {
		if _, err := domain.PollOptionsFromRaw(entry.OptionList()); err != nil {
			return domain.ContentEntry{}, false, nil
		}
	}

	return entry, true, nil
}

func (r *Resolver) programEntries(ctx context.Context, program string) ([]domain.ContentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entries, ok := r.cache[program]; ok {
		return entries, nil
	}

	entries, err := r.source.GetProgram(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for program %s: %w", program, err)
	}
	r.cache[program] = entries
	return entries, nil
}

// ComposeMessage renders the message body for a text or image entry.
func ComposeMessage(entry domain.ContentEntry) string {
	return fmt.Sprintf("Saison %d - Jour %d : \n%s : %s", entry.Season, entry.Day, entry.TypeLabel, entry.Text)
}

// ComposePollMessage lays out a poll body: the date label on the
// first line, the question on the second, then one raw option per
// line. The delivery pass parses this layout back when dispatching.
func ComposePollMessage(dateLabel string, entry domain.ContentEntry) string {
	lines := make([]string, 0, 2+4)
	lines = append(lines, dateLabel, strings.TrimSpace(entry.Text))
	lines = append(lines, entry.OptionList()...)
	return strings.Join(lines, "\n")
}
