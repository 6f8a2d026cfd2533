package logseq

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// inputLayouts are tried in order, so 03/04/2024 reads as US (March 4th).
var inputLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var (
	journalName = regexp.MustCompile(`^([A-Za-z]+) (\d{1,2})(?:st|nd|rd|th), (\d{4})$`)
	ordinal     = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)\b`)
)

// ParseJournalDate reads the date formats people use for journal pages,
// including names that are already in Logseq's own format.
func ParseJournalDate(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if m := journalName.FindStringSubmatch(s); m != nil {
		plain := m[1] + " " + m[2] + ", " + m[3]
		for _, layout := range []string{"Jan 2, 2006", "January 2, 2006"} {
			if t, err := time.Parse(layout, plain); err == nil {
				return t, nil
			}
		}
	}

	s = ordinal.ReplaceAllString(s, "$1")
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", input)
}

// FormatJournalName renders t as Logseq names journal pages, e.g.
// "Dec 25th, 2023", or "December 25th, 2023" when full is set.
func FormatJournalName(t time.Time, full bool) string {
	month := t.Month().String()
	if !full {
		month = month[:3]
	}
	return fmt.Sprintf("%s %d%s, %d", month, t.Day(), ordinalSuffix(t.Day()), t.Year())
}

// JournalPageNames lists the page names a journal date may be stored under,
// abbreviated month first. An input that is already a journal name is kept.
func JournalPageNames(input string) ([]string, error) {
	t, err := ParseJournalDate(input)
	if err != nil {
		return nil, err
	}

	names := []string{FormatJournalName(t, false), FormatJournalName(t, true)}
	if s := strings.TrimSpace(input); journalName.MatchString(s) {
		names = append(names, s)
	}
	return dedupe(names), nil
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
