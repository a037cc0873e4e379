package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in datasets and metadata.
const DateLayout = "2006-01-02"

// EventRecord is a dated event hosted by a platform.
// PlatformID is a weak reference; the platform may not exist in the index.
type EventRecord struct {
	ID          string    `json:"id"`
	PlatformID  string    `json:"platform_id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
}

// RecordID implements Record.
func (e EventRecord) RecordID() string { return e.ID }

// Kind implements Record.
func (e EventRecord) Kind() RecordKind { return RecordKindEvent }

// DisplayName implements Record.
func (e EventRecord) DisplayName() string { return e.Title }

// Link implements Record.
func (e EventRecord) Link() string { return e.URL }

// DateString returns the event date in DateLayout.
func (e EventRecord) DateString() string {
	if e.Date.IsZero() {
		return ""
	}
	return e.Date.Format(DateLayout)
}

// EmbeddingText returns the text embedded for semantic search.
func (e EventRecord) EmbeddingText() string {
	parts := []string{e.Title}
	if e.Location != "" {
		parts = append(parts, "Location: "+e.Location)
	}
	if d := e.DateString(); d != "" {
		parts = append(parts, "Date: "+d)
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	return strings.Join(parts, ". ")
}

// Validate checks the fields required to index the event.
func (e EventRecord) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return invalidRecord("event", e.ID, "id")
	case strings.TrimSpace(e.Title) == "":
		return invalidRecord("event", e.ID, "title")
	case e.Date.IsZero():
		return invalidRecord("event", e.ID, "date")
	}
	return nil
}

// DayOrdinal returns the number of whole days between the Unix epoch and t's calendar date.
// Used as a numeric, range-filterable encoding of event dates.
func DayOrdinal(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// CalendarDate truncates t to midnight UTC of its calendar date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type eventJSON struct {
	ID          string `json:"id"`
	PlatformID  string `json:"platform_id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// MarshalJSON encodes Date as a calendar date.
func (e EventRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:          e.ID,
		PlatformID:  e.PlatformID,
		Title:       e.Title,
		Date:        e.DateString(),
		Location:    e.Location,
		URL:         e.URL,
		Description: e.Description,
	})
}

// UnmarshalJSON accepts dates in DateLayout or RFC 3339.
func (e *EventRecord) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("event %q: %w", raw.ID, err)
	}
	*e = EventRecord{
		ID:          raw.ID,
		PlatformID:  raw.PlatformID,
		Title:       raw.Title,
		Date:        date,
		Location:    raw.Location,
		URL:         raw.URL,
		Description: raw.Description,
	}
	return nil
}

// ParseDate parses a calendar date. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return CalendarDate(t), nil
}
