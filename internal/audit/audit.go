// Package audit keeps the policy event log: every blocked input, suppressed
// answer, dropped history turn and moderation failure.
package audit

import "github.com/ziadkadry99/vachat/internal/policy"

// Summary aggregates stored events for the dashboard.
type Summary struct {
	Total      int                     `json:"total"`
	ByCategory map[policy.Category]int `json:"by_category"`
	ByStage    map[policy.Stage]int    `json:"by_stage"`
	Failures   int                     `json:"moderation_failures"`
}
