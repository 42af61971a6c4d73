package policy

import (
	"context"
	"log"
	"time"
	"unicode/utf8"
)

// EventSink stores policy events. audit.Store satisfies it.
type EventSink interface {
	RecordPolicyEvent(ctx context.Context, e Event) error
}

// Gate runs the layered safety checks applied to user input, prior history
// turns and generated output. It holds no per-call state and is safe for
// concurrent use.
type Gate struct {
	moderator       Moderator
	crisisKeywords  []string
	medicalKeywords []string
	failOpen        bool
	checkOutput     bool
	suppressOutput  bool
	moderateHistory bool
	sink            EventSink
	logger          *log.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithModerator enables the moderation step. Without one only keyword
// checks run.
func WithModerator(m Moderator) Option {
	return func(g *Gate) { g.moderator = m }
}

// WithFailOpen decides whether a moderation failure lets text through
// (true, the default) or blocks it.
func WithFailOpen(open bool) Option {
	return func(g *Gate) { g.failOpen = open }
}

// WithOutputCheck configures moderation of generated answers. When suppress
// is false flagged answers pass through with a logged warning.
func WithOutputCheck(enabled, suppress bool) Option {
	return func(g *Gate) {
		g.checkOutput = enabled
		g.suppressOutput = suppress
	}
}

// WithHistoryModeration toggles dropping flagged user turns from history.
func WithHistoryModeration(enabled bool) Option {
	return func(g *Gate) { g.moderateHistory = enabled }
}

// WithCrisisKeywords replaces the crisis keyword list. An empty list keeps
// the defaults.
func WithCrisisKeywords(keywords []string) Option {
	return func(g *Gate) {
		if len(keywords) > 0 {
			g.crisisKeywords = keywords
		}
	}
}

// WithMedicalKeywords replaces the medical keyword list. An empty list keeps
// the defaults.
func WithMedicalKeywords(keywords []string) Option {
	return func(g *Gate) {
		if len(keywords) > 0 {
			g.medicalKeywords = keywords
		}
	}
}

// WithEventSink records disallowed verdicts and moderation failures.
func WithEventSink(s EventSink) Option {
	return func(g *Gate) { g.sink = s }
}

// WithLogger sets the logger for warnings.
func WithLogger(l *log.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a gate. Defaults: fail open, output checked and
// suppressed on flag, history moderated, built-in keyword lists.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		crisisKeywords:  DefaultCrisisKeywords,
		medicalKeywords: DefaultMedicalKeywords,
		failOpen:        true,
		checkOutput:     true,
		suppressOutput:  true,
		moderateHistory: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.Default()
	}
	return g
}

type sessionKey struct{}

// WithSession tags policy events recorded under ctx with a session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// CheckInput runs crisis detection, moderation and the medical domain check,
// in that order, stopping at the first that fires. The returned verdict is
// always usable. A non-nil error is a *CheckFailure and is only returned when
// the gate fails closed; the verdict then blocks the input.
func (g *Gate) CheckInput(ctx context.Context, text string) (Verdict, error) {
	if kw, ok := matchKeyword(text, g.crisisKeywords); ok {
		v := Verdict{Category: CategoryCrisis, Message: CrisisMessage}
		g.record(ctx, StageInput, v, "", text, "matched crisis keyword "+kw)
		return v, nil
	}

	if g.moderator != nil {
		res, err := g.moderator.Moderate(ctx, text)
		if err != nil {
			failure := &CheckFailure{Stage: StageInput, Err: err}
			if !g.failOpen {
				v := Verdict{Category: CategoryUnsafeContent, Message: UnavailableMessage}
				g.record(ctx, StageInput, v, "", text, failure.Error())
				return v, failure
			}
			g.logger.Printf("policy: warning: %v; allowing input", failure)
			g.record(ctx, StageInput, Allow(), "", text, failure.Error())
		} else if res.Flagged {
			v := Verdict{Category: CategoryUnsafeContent, Message: unsafeContentMessage(res.Categories), Flagged: res.Categories}
			g.record(ctx, StageInput, v, "", text, "")
			return v, nil
		}
	}

	if kw, ok := matchWord(text, g.medicalKeywords); ok {
		v := Verdict{Category: CategoryMedical, Message: MedicalMessage}
		g.record(ctx, StageInput, v, "", text, "matched medical keyword "+kw)
		return v, nil
	}

	return Allow(), nil
}

// CheckOutput moderates a generated answer for slot. It returns the text to
// show the user and the verdict. Flagged output is replaced with
// SuppressedOutputMessage unless suppression is disabled.
func (g *Gate) CheckOutput(ctx context.Context, slot, text string) (string, Verdict) {
	if !g.checkOutput || g.moderator == nil {
		return text, Allow()
	}

	res, err := g.moderator.Moderate(ctx, text)
	if err != nil {
		failure := &CheckFailure{Stage: StageOutput, Err: err}
		if g.failOpen {
			g.logger.Printf("policy: warning: %v; passing %s output through", failure, slot)
			g.record(ctx, StageOutput, Allow(), slot, text, failure.Error())
			return text, Allow()
		}
		v := Verdict{Category: CategoryUnsafeContent, Message: SuppressedOutputMessage}
		g.record(ctx, StageOutput, v, slot, text, failure.Error())
		return SuppressedOutputMessage, v
	}
	if !res.Flagged {
		return text, Allow()
	}

	v := Verdict{Category: CategoryUnsafeContent, Message: SuppressedOutputMessage, Flagged: res.Categories}
	if !g.suppressOutput {
		g.logger.Printf("policy: warning: %s output flagged for %v, passing through", slot, res.Categories)
		g.record(ctx, StageOutput, v, slot, text, "passed through")
		return text, v
	}
	g.record(ctx, StageOutput, v, slot, text, "suppressed")
	return SuppressedOutputMessage, v
}

// AllowHistoryTurn reports whether a prior user turn may be replayed to the
// model. Moderation failures follow the fail-open setting.
func (g *Gate) AllowHistoryTurn(ctx context.Context, text string) bool {
	if !g.moderateHistory || g.moderator == nil {
		return true
	}
	res, err := g.moderator.Moderate(ctx, text)
	if err != nil {
		failure := &CheckFailure{Stage: StageHistory, Err: err}
		g.logger.Printf("policy: warning: %v", failure)
		g.record(ctx, StageHistory, Verdict{Allowed: g.failOpen, Category: CategoryNone}, "", text, failure.Error())
		return g.failOpen
	}
	if res.Flagged {
		g.record(ctx, StageHistory, Verdict{Category: CategoryUnsafeContent, Flagged: res.Categories}, "", text, "dropped from history")
		return false
	}
	return true
}

const maxExcerpt = 200

func (g *Gate) record(ctx context.Context, stage Stage, v Verdict, slot, text, detail string) {
	if g.sink == nil {
		return
	}
	e := Event{
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Category:  v.Category,
		Allowed:   v.Allowed,
		Flagged:   v.Flagged,
		SessionID: sessionFrom(ctx),
		Slot:      slot,
		Excerpt:   excerpt(text, maxExcerpt),
		Detail:    detail,
	}
	if err := g.sink.RecordPolicyEvent(ctx, e); err != nil {
		g.logger.Printf("policy: recording %s event: %v", stage, err)
	}
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
