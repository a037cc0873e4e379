package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// maxKeywords caps the keywords kept per analytics entry.
const maxKeywords = 10

// analyticsStopWords are dropped from logged keywords.
var analyticsStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "has": {}, "he": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "will": {}, "with": {}, "what": {}, "where": {},
	"who": {}, "how": {}, "when": {}, "me": {}, "my": {}, "i": {}, "you": {}, "can": {},
	"find": {}, "show": {}, "tell": {}, "give": {}, "get": {},
}

// ExtractKeywords returns up to ten unique lower-cased non-stop-words in order.
// Keywords are the only trace of query text kept by analytics.
func ExtractKeywords(query string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tok := range tokenise(query) {
		if _, stop := analyticsStopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// FormatContext renders ranked records as the numbered context block of a prompt.
// Event URLs that only point at the host platform's homepage are marked so the
// model does not present them as event pages.
func FormatContext(results []domain.SearchResult) string {
	websites := map[string]string{}
	for _, r := range results {
		if p, ok := r.Platform(); ok && p.Website != "" {
			websites[p.ID] = p.Website
		}
	}

	var platforms, events strings.Builder
	np, ne := 0, 0
	for _, r := range results {
		switch rec := r.Record.(type) {
		case domain.PlatformRecord:
			np++
			fmt.Fprintf(&platforms, "%d. **%s**\n", np, rec.Name)
			writeField(&platforms, "Type", rec.Type.String())
			writeField(&platforms, "Focus", rec.FocusArea)
			writeField(&platforms, "Description", rec.Description)
			writeField(&platforms, "Website", rec.Website)
			if tags := rec.SortedTags(); len(tags) > 0 {
				writeField(&platforms, "Tags", strings.Join(tags, ", "))
			}
			platforms.WriteString("\n")
		case domain.EventRecord:
			ne++
			fmt.Fprintf(&events, "%d. **%s**\n", ne, rec.Title)
			writeField(&events, "Date", rec.DateString())
			writeField(&events, "Location", rec.Location)
			writeField(&events, "Description", rec.Description)
			url := rec.URL
			if home, ok := websites[rec.PlatformID]; ok && sameURL(url, home) {
				url = fmt.Sprintf("[BASE WEBSITE ONLY - %s]", home)
			}
			writeField(&events, "Event URL", url)
			events.WriteString("\n")
		}
	}

	var b strings.Builder
	if np > 0 {
		b.WriteString("Platforms:\n\n")
		b.WriteString(platforms.String())
	}
	if ne > 0 {
		b.WriteString("Upcoming Events:\n\n")
		b.WriteString(events.String())
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "   %s: %s\n", label, value)
}

func sameURL(a, b string) bool {
	return a != "" && normaliseURL(a) == normaliseURL(b)
}

func normaliseURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}
