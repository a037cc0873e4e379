package domain

import "time"

// QueryLogEntry is one privacy-preserving analytics record.
// It never contains the raw query text.
type QueryLogEntry struct {
	ID             string
	SessionID      string
	Timestamp      time.Time
	Mode           Mode
	QueryLength    int
	Keywords       []string
	PlatformIDs    []string
	EventIDs       []string
	ResponseLength int
	Provider       string
	Degraded       bool

	// ErrorType is empty on success.
	ErrorType string
}

// KeywordCount pairs a value with its frequency.
type KeywordCount struct {
	Value string
	Count int
}

// QueryStats summarises the analytics log.
type QueryStats struct {
	TotalQueries   int
	ByMode         map[Mode]int
	Errors         int
	Degraded       int
	AvgQueryLength float64
	TopKeywords    []KeywordCount
	TopPlatforms   []KeywordCount
}

// ErrorRate returns the fraction of queries that failed.
func (s QueryStats) ErrorRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.TotalQueries)
}
