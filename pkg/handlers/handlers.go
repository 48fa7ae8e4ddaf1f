// Package handlers implements the per-entity mutation and query
// resolvers. Every mutation follows the same pipeline: role or
// authentication gate, structural validation, existence lookup,
// ownership check, mutation, persist, envelope.
package handlers

import (
	"encoding/json"
	"time"

	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
)

const (
	dateLayout = "2006-01-02"
	monthLabel = "January 2006"
)

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return graph.Errorf("Invalid arguments: %v.", err)
	}
	return nil
}

// parseStartDate resolves a date argument to the start of that day.
// An empty argument is a no-op filter.
func parseStartDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, graph.Errorf("Invalid startDate %q, expected YYYY-MM-DD.", s)
	}
	return &d, nil
}

// parseEndDate resolves a date argument to the end of that day, so the
// range is inclusive of the full day.
func parseEndDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, graph.Errorf("Invalid endDate %q, expected YYYY-MM-DD.", s)
	}
	d = d.Add(24*time.Hour - time.Nanosecond)
	return &d, nil
}

// monthWindow returns the first instant of the window covering the N
// months ending with (and including) the month of now, plus the
// exclusive end bound.
func monthWindow(n int, now time.Time) (start, end time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -(n - 1), 0), first.AddDate(0, 1, 0)
}
