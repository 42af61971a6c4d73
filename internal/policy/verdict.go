package policy

import (
	"fmt"
	"time"
)

// Category classifies why a text was (or was not) allowed.
type Category string

const (
	CategoryNone          Category = "none"
	CategoryCrisis        Category = "crisis"
	CategoryUnsafeContent Category = "unsafe-content"
	CategoryMedical       Category = "out-of-domain-medical"
)

// Stage identifies which text a check ran against.
type Stage string

const (
	StageInput   Stage = "input"
	StageOutput  Stage = "output"
	StageHistory Stage = "history"
)

// Verdict is the outcome of a policy check. Message is empty when Allowed.
type Verdict struct {
	Allowed  bool     `json:"allowed"`
	Category Category `json:"category"`
	Message  string   `json:"message,omitempty"`
	Flagged  []string `json:"flagged_categories,omitempty"`
}

// Allow is the verdict for text that passed every check.
func Allow() Verdict {
	return Verdict{Allowed: true, Category: CategoryNone}
}

// Event is a policy decision worth keeping: every disallowed verdict and
// every moderation failure.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage"`
	Category  Category  `json:"category"`
	Allowed   bool      `json:"allowed"`
	Flagged   []string  `json:"flagged_categories"`
	SessionID string    `json:"session_id,omitempty"`
	Slot      string    `json:"slot,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// CheckFailure means the moderation service itself could not be reached or
// returned an unusable answer.
type CheckFailure struct {
	Stage Stage
	Err   error
}

func (e *CheckFailure) Error() string {
	return fmt.Sprintf("policy: %s moderation failed: %v", e.Stage, e.Err)
}

func (e *CheckFailure) Unwrap() error { return e.Err }
