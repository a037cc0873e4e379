package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordKind distinguishes the record types held in the vector store.
type RecordKind string

// Record kinds.
const (
	RecordKindPlatform RecordKind = "platform"
	RecordKindEvent    RecordKind = "event"
)

// Record is a retrievable item. Implemented by PlatformRecord and EventRecord.
type Record interface {
	RecordID() string
	Kind() RecordKind
	DisplayName() string
	Link() string
	EmbeddingText() string
}

// Metadata keys stored alongside each vector.
const (
	MetaKind        = "kind"
	MetaID          = "id"
	MetaName        = "name"
	MetaType        = "type"
	MetaFocusArea   = "focus_area"
	MetaDescription = "description"
	MetaWebsite     = "website"
	MetaTags        = "tags"
	MetaPlatformID  = "platform_id"
	MetaTitle       = "title"
	MetaDate        = "date"
	MetaDateOrdinal = "date_ordinal"
	MetaLocation    = "location"
	MetaURL         = "url"
)

const tagSeparator = "|"

// EncodeMetadata flattens a record into string metadata for the vector store.
func EncodeMetadata(r Record) map[string]string {
	switch rec := r.(type) {
	case PlatformRecord:
		return map[string]string{
			MetaKind:        string(RecordKindPlatform),
			MetaID:          rec.ID,
			MetaName:        rec.Name,
			MetaType:        rec.Type.String(),
			MetaFocusArea:   rec.FocusArea,
			MetaDescription: rec.Description,
			MetaWebsite:     rec.Website,
			MetaTags:        strings.Join(rec.SortedTags(), tagSeparator),
		}
	case EventRecord:
		return map[string]string{
			MetaKind:        string(RecordKindEvent),
			MetaID:          rec.ID,
			MetaPlatformID:  rec.PlatformID,
			MetaTitle:       rec.Title,
			MetaDate:        rec.DateString(),
			MetaDateOrdinal: strconv.FormatInt(DayOrdinal(rec.Date), 10),
			MetaLocation:    rec.Location,
			MetaURL:         rec.URL,
			MetaDescription: rec.Description,
		}
	default:
		return map[string]string{MetaID: r.RecordID()}
	}
}

// DecodeMetadata rebuilds a record from vector store metadata.
// The id argument is used when the metadata carries no id of its own.
func DecodeMetadata(id string, md map[string]string) (Record, error) {
	if v := md[MetaID]; v != "" {
		id = v
	}
	switch RecordKind(md[MetaKind]) {
	case RecordKindPlatform:
		var tags []string
		if t := md[MetaTags]; t != "" {
			tags = strings.Split(t, tagSeparator)
		}
		return PlatformRecord{
			ID:          id,
			Name:        md[MetaName],
			Type:        PlatformType(md[MetaType]),
			FocusArea:   md[MetaFocusArea],
			Description: md[MetaDescription],
			Website:     md[MetaWebsite],
			Tags:        tags,
		}, nil
	case RecordKindEvent:
		date, err := ParseDate(md[MetaDate])
		if err != nil {
			return nil, err
		}
		return EventRecord{
			ID:          id,
			PlatformID:  md[MetaPlatformID],
			Title:       md[MetaTitle],
			Date:        date,
			Location:    md[MetaLocation],
			URL:         md[MetaURL],
			Description: md[MetaDescription],
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown record kind %q for %s", ErrInvalidRecord, md[MetaKind], id)
	}
}

func invalidRecord(kind, id, field string) error {
	if id == "" {
		id = "<missing id>"
	}
	return fmt.Errorf("%w: %s %s: missing %s", ErrInvalidRecord, kind, id, field)
}
