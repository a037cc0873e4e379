package domain

import "time"

// SearchFilter restricts retrieval by record metadata.
// Zero-valued fields are unbounded.
type SearchFilter struct {
	// Type restricts platforms to one PlatformType.
	Type PlatformType

	// PlatformID restricts events to one host platform.
	PlatformID string

	// DateFrom is the inclusive lower bound on event dates.
	DateFrom time.Time

	// DateTo is the inclusive upper bound on event dates.
	DateTo time.Time
}

// IsZero reports whether the filter restricts nothing.
func (f SearchFilter) IsZero() bool {
	return f.Type == "" && f.PlatformID == "" && f.DateFrom.IsZero() && f.DateTo.IsZero()
}

// Matches reports whether r satisfies every bound of the filter.
func (f SearchFilter) Matches(r Record) bool {
	switch rec := r.(type) {
	case PlatformRecord:
		if f.Type != "" && rec.Type != f.Type {
			return false
		}
	case EventRecord:
		if f.PlatformID != "" && rec.PlatformID != f.PlatformID {
			return false
		}
		day := DayOrdinal(rec.Date)
		if !f.DateFrom.IsZero() && (rec.Date.IsZero() || day < DayOrdinal(f.DateFrom)) {
			return false
		}
		if !f.DateTo.IsZero() && (rec.Date.IsZero() || day > DayOrdinal(f.DateTo)) {
			return false
		}
	}
	return true
}

// EventWindow returns the filter for upcoming events: today through months ahead.
func EventWindow(today time.Time, months int) SearchFilter {
	from := CalendarDate(today)
	return SearchFilter{
		DateFrom: from,
		DateTo:   from.AddDate(0, months, 0),
	}
}

// SearchResult is a single ranked retrieval hit.
// Created per query and never persisted.
type SearchResult struct {
	// Record is the matched platform or event.
	Record Record

	// VectorScore is the semantic similarity in [0,1].
	VectorScore float64

	// KeywordScore is the keyword boost above 1 (multiplier - 1).
	KeywordScore float64

	// CombinedScore is VectorScore scaled by the keyword multiplier.
	CombinedScore float64

	// Rank is the 1-based position after re-ranking.
	Rank int
}

// Platform returns the record as a PlatformRecord, if it is one.
func (r SearchResult) Platform() (PlatformRecord, bool) {
	p, ok := r.Record.(PlatformRecord)
	return p, ok
}

// Event returns the record as an EventRecord, if it is one.
func (r SearchResult) Event() (EventRecord, bool) {
	e, ok := r.Record.(EventRecord)
	return e, ok
}
