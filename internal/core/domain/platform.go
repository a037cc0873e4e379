package domain

import (
	"sort"
	"strings"
)

// PlatformType classifies a community platform.
type PlatformType string

// Known platform types.
const (
	// PlatformTypeTech covers technology communities.
	PlatformTypeTech PlatformType = "Tech"

	// PlatformTypeOutdoor covers outdoor and travel communities.
	PlatformTypeOutdoor PlatformType = "Outdoor/Travel"
)

// IsValid returns true if the platform type is recognised.
func (t PlatformType) IsValid() bool {
	switch t {
	case PlatformTypeTech, PlatformTypeOutdoor:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t PlatformType) String() string {
	return string(t)
}

// ParsePlatformType maps loose spellings ("tech", "outdoor", "travel") onto a type.
func ParsePlatformType(s string) (PlatformType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tech", "technology":
		return PlatformTypeTech, true
	case "outdoor/travel", "outdoor", "travel", "outdoors":
		return PlatformTypeOutdoor, true
	default:
		return "", false
	}
}

// PlatformRecord is a curated community platform.
// Immutable after index build; replaced wholesale on rebuild.
type PlatformRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        PlatformType `json:"type"`
	FocusArea   string       `json:"focus_area"`
	Description string       `json:"description"`
	Website     string       `json:"website,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
}

// RecordID implements Record.
func (p PlatformRecord) RecordID() string { return p.ID }

// Kind implements Record.
func (p PlatformRecord) Kind() RecordKind { return RecordKindPlatform }

// DisplayName implements Record.
func (p PlatformRecord) DisplayName() string { return p.Name }

// Link implements Record.
func (p PlatformRecord) Link() string { return p.Website }

// EmbeddingText returns the text embedded for semantic search.
func (p PlatformRecord) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(". ")
	if p.Type != "" {
		b.WriteString(p.Type.String())
		b.WriteString(" community. ")
	}
	if p.FocusArea != "" {
		b.WriteString("Focus: ")
		b.WriteString(p.FocusArea)
		b.WriteString(". ")
	}
	b.WriteString(p.Description)
	if len(p.Tags) > 0 {
		b.WriteString(" Tags: ")
		b.WriteString(strings.Join(p.SortedTags(), ", "))
	}
	return strings.TrimSpace(b.String())
}

// SortedTags returns the de-duplicated tags in lexical order.
func (p PlatformRecord) SortedTags() []string {
	seen := make(map[string]struct{}, len(p.Tags))
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Validate checks the fields required to index the platform.
func (p PlatformRecord) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return invalidRecord("platform", p.ID, "id")
	case strings.TrimSpace(p.Name) == "":
		return invalidRecord("platform", p.ID, "name")
	case !p.Type.IsValid():
		return invalidRecord("platform", p.ID, "type")
	}
	return nil
}
