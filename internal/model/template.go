package model

import (
	"fmt"
	"sort"
	"time"
)

// Span is one bookable slot in a day's template, bounded by its start and end
// clock labels ("08:00" format). The ordered span list replaces the pair of
// parallel start/end arrays the template is stored as upstream.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeekTemplate holds a professional's bookable spans for each day of the week.
// It is fetched fresh per search and never mutated.
type WeekTemplate struct {
	ProfessionalID int64
	Days           [7][]Span // indexed by time.Weekday
}

// SpansFor returns the ordered spans configured for the given weekday.
func (t *WeekTemplate) SpansFor(day time.Weekday) []Span {
	return t.Days[day]
}

// IsEmpty reports whether no weekday has any spans. An empty template renders
// as "no schedule configured", not as an error.
func (t *WeekTemplate) IsEmpty() bool {
	for _, spans := range t.Days {
		if len(spans) > 0 {
			return false
		}
	}
	return true
}

// Labels returns the distinct start labels appearing anywhere in the week,
// in ascending clock order. These are the grid's row headers. Labels that do
// not parse as clock times are dropped rather than sorted arbitrarily.
func (t *WeekTemplate) Labels() []string {
	minutes := make(map[string]int)
	var labels []string
	for _, spans := range t.Days {
		for _, s := range spans {
			if _, ok := minutes[s.Start]; ok {
				continue
			}
			m, err := LabelMinutes(s.Start)
			if err != nil {
				continue
			}
			minutes[s.Start] = m
			labels = append(labels, s.Start)
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		return minutes[labels[i]] < minutes[labels[j]]
	})
	return labels
}

// SpanIndex returns the position of the span whose start label matches, or -1.
func SpanIndex(spans []Span, start string) int {
	for i, s := range spans {
		if s.Start == start {
			return i
		}
	}
	return -1
}

// SpanEndIndex returns the position of the span whose end label matches, or -1.
func SpanEndIndex(spans []Span, end string) int {
	for i, s := range spans {
		if s.End == end {
			return i
		}
	}
	return -1
}

// LabelMinutes converts an "HH:MM" label to minutes since midnight.
func LabelMinutes(label string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(label, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time label %q: %w", label, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time label %q", label)
	}
	return h*60 + m, nil
}
