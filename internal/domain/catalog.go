package domain

import "strings"

// ContentEntry is one row of the content catalog, keyed by
// (program, season, day, type ordinal). Day is the run-index a
// subscriber must have reached for the entry to apply.
type ContentEntry struct {
	Program   string
	Season    int
	Day       int
	TypeID    int
	TypeLabel string
	Text      string
	Format    Format
	MediaURL  string
	Options   string // semicolon-delimited answer options, poll format only
}

// OptionList splits the semicolon-delimited options column into raw
// answer options, dropping blanks.
func (e ContentEntry) OptionList() []string {
	parts := strings.Split(e.Options, ";")
	options := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			options = append(options, trimmed)
		}
	}
	return options
}
