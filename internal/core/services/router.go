package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// eventKeywords are single-word cues for event discovery.
var eventKeywords = map[string]struct{}{
	"event": {}, "events": {}, "conference": {}, "conferences": {}, "workshop": {}, "workshops": {},
	"meetup": {}, "meetups": {}, "webinar": {}, "webinars": {}, "happening": {}, "upcoming": {},
	"schedule": {}, "calendar": {}, "when": {}, "gathering": {}, "gatherings": {}, "summit": {},
	"summits": {}, "bootcamp": {}, "bootcamps": {}, "hackathon": {}, "hackathons": {},
	"training": {}, "trainings": {}, "tonight": {}, "tomorrow": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "june": {}, "july": {},
	"august": {}, "september": {}, "october": {}, "november": {}, "december": {},
}

// eventPhrases are multi-word cues for event discovery.
var eventPhrases = []string{
	"this weekend", "next weekend", "this week", "next week", "this month", "next month",
	"this year", "next year", "coming up", "going on",
}

// datePattern matches explicit dates such as 2025-06-01, 6/1 or 1st june.
var datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(/\d{2,4})?|\d{1,2}(st|nd|rd|th))\b`)

var techCues = []string{"tech", "technology", "software", "coding", "developer", "developers", "engineering", "startup", "startups", "data", "ai"}

var outdoorCues = []string{"outdoor", "outdoors", "hiking", "hike", "travel", "travelling", "traveling", "camping", "climbing", "nature", "adventure", "trail", "trails", "skiing", "surfing"}

// Router classifies queries with keyword heuristics, no model call.
type Router struct{}

// NewRouter creates a router.
func NewRouter() *Router {
	return &Router{}
}

// Route returns ModeEvent when the query carries event or date cues,
// and ModePlatform otherwise.
func (r *Router) Route(query string) domain.Mode {
	lower := strings.ToLower(query)
	for _, tok := range tokenise(lower) {
		if _, ok := eventKeywords[tok]; ok {
			return domain.ModeEvent
		}
	}
	phrase := normalisePhrase(lower)
	for _, p := range eventPhrases {
		if containsPhrase(phrase, p) {
			return domain.ModeEvent
		}
	}
	if datePattern.MatchString(lower) {
		return domain.ModeEvent
	}
	return domain.ModePlatform
}

// PlatformType returns the platform type a query asks for, if exactly one is cued.
func (r *Router) PlatformType(query string) (domain.PlatformType, bool) {
	tokens := tokenSet(tokenise(query))
	tech := hasAny(tokens, techCues)
	outdoor := hasAny(tokens, outdoorCues)
	switch {
	case tech && !outdoor:
		return domain.PlatformTypeTech, true
	case outdoor && !tech:
		return domain.PlatformTypeOutdoor, true
	default:
		return "", false
	}
}

func hasAny(tokens map[string]struct{}, cues []string) bool {
	for _, c := range cues {
		if _, ok := tokens[c]; ok {
			return true
		}
	}
	return false
}
