// Package assistant answers a user's question: it runs the policy gate,
// retrieves VA.gov context, fans the prompt out to one or two provider slots
// and returns every slot's answer with the context it was built from.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/llm"
	"github.com/ziadkadry99/vachat/internal/policy"
	"github.com/ziadkadry99/vachat/internal/vectordb"
)

// MaxSlots is how many providers a single turn may compare.
const MaxSlots = 2

// DefaultTimeout bounds each slot's generation call.
const DefaultTimeout = 60 * time.Second

// ShapeErrorMessage is shown for a slot whose provider answered with a
// response that could not be read.
const ShapeErrorMessage = "The model returned a response that could not be read. The issue has been logged."

// Retriever finds context chunks for a query. vectordb.DocumentStore
// satisfies it.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]vectordb.SearchResult, error)
}

// Gate is the policy surface the engine needs. policy.Gate satisfies it.
type Gate interface {
	CheckInput(ctx context.Context, text string) (policy.Verdict, error)
	CheckOutput(ctx context.Context, slot, text string) (string, policy.Verdict)
	AllowHistoryTurn(ctx context.Context, text string) bool
}

// Slot is one configured model a turn can be sent to.
type Slot struct {
	Label       string
	Kind        llm.Kind
	Model       string
	Temperature float64
	MaxTokens   int
	Provider    llm.Provider
}

// Source is a retrieved chunk shown as a citation.
type Source struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float32 `json:"score"`
}

// Answer is one slot's reply. Err holds the provider failure, if any; Text
// then carries the message shown to the user.
type Answer struct {
	Slot          string          `json:"slot"`
	Model         string          `json:"model"`
	Text          string          `json:"text"`
	Err           error           `json:"-"`
	Error         string          `json:"error,omitempty"`
	OutputVerdict *policy.Verdict `json:"output_verdict,omitempty"`
	InputTokens   int             `json:"input_tokens,omitempty"`
	OutputTokens  int             `json:"output_tokens,omitempty"`
	Cost          float64         `json:"cost_usd,omitempty"`
	Latency       time.Duration   `json:"latency_ns"`
}

// Result is the outcome of one turn. Context is byte-identical to the
// context the answers were generated from.
type Result struct {
	Query            string         `json:"query"`
	Verdict          policy.Verdict `json:"verdict"`
	Context          string         `json:"context"`
	ContextAvailable bool           `json:"context_available"`
	Sources          []Source       `json:"sources"`
	Answers          []Answer       `json:"answers"`
}

// Engine orchestrates a conversation turn. It is safe for concurrent use.
type Engine struct {
	retriever    Retriever
	gate         Gate
	slots        map[string]Slot
	defaultSlots []string
	systemPrompt string
	topK         int
	timeout      time.Duration
	logger       *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(e *Engine) {
		if p != "" {
			e.systemPrompt = p
		}
	}
}

// WithTopK sets how many chunks are retrieved per turn.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithTimeout bounds each slot's generation call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithDefaultSlots sets the slots used when a turn names none.
func WithDefaultSlots(labels []string) Option {
	return func(e *Engine) { e.defaultSlots = labels }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over the given slots.
func NewEngine(retriever Retriever, gate Gate, slots []Slot, opts ...Option) (*Engine, error) {
	e := &Engine{
		retriever:    retriever,
		gate:         gate,
		slots:        make(map[string]Slot, len(slots)),
		systemPrompt: DefaultSystemPrompt,
		topK:         vectordb.DefaultTopK,
		timeout:      DefaultTimeout,
	}
	for _, s := range slots {
		if s.Label == "" {
			return nil, fmt.Errorf("slot has no label")
		}
		if s.Provider == nil {
			return nil, fmt.Errorf("slot %q has no provider", s.Label)
		}
		if _, dup := e.slots[s.Label]; dup {
			return nil, fmt.Errorf("duplicate slot %q", s.Label)
		}
		e.slots[s.Label] = s
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e, nil
}

// Slots returns the configured slot labels, sorted.
func (e *Engine) Slots() []string {
	labels := make([]string, 0, len(e.slots))
	for l := range e.slots {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// resolve maps requested labels to slots, falling back to the defaults.
func (e *Engine) resolve(labels []string) ([]Slot, error) {
	if len(labels) == 0 {
		labels = e.defaultSlots
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no provider slots selected")
	}
	if len(labels) > MaxSlots {
		return nil, fmt.Errorf("at most %d provider slots per turn, got %d", MaxSlots, len(labels))
	}
	out := make([]Slot, len(labels))
	for i, l := range labels {
		s, ok := e.slots[l]
		if !ok {
			return nil, fmt.Errorf("unknown provider slot %q", l)
		}
		for _, prev := range out[:i] {
			if prev.Label == l {
				return nil, fmt.Errorf("provider slot %q selected twice", l)
			}
		}
		out[i] = s
	}
	return out, nil
}

// Respond answers query for each requested slot. history is the prior
// conversation, oldest first. A disallowed query returns the verdict message
// for every slot without retrieval or generation. A failing slot yields an
// error text in its Answer and never affects its sibling. The returned error
// is non-nil only for an invalid slot selection.
func (e *Engine) Respond(ctx context.Context, query string, history []conversation.Turn, slotLabels []string) (*Result, error) {
	slots, err := e.resolve(slotLabels)
	if err != nil {
		return nil, err
	}

	res := &Result{Query: query, Sources: []Source{}}

	verdict, err := e.gate.CheckInput(ctx, query)
	if err != nil {
		e.logger.Printf("assistant: policy check failed: %v", err)
	}
	res.Verdict = verdict
	if !verdict.Allowed {
		res.Answers = make([]Answer, len(slots))
		for i, s := range slots {
			res.Answers[i] = Answer{Slot: s.Label, Model: s.Model, Text: verdict.Message}
		}
		return res, nil
	}

	results, err := e.retriever.Search(ctx, query, e.topK)
	if err != nil {
		e.logger.Printf("assistant: retrieval failed, answering without context: %v", err)
	} else {
		res.Context = BuildContext(results)
		res.ContextAvailable = len(results) > 0
		for _, r := range results {
			res.Sources = append(res.Sources, Source{URL: r.Chunk.URL, Title: r.Chunk.Title, Score: r.Score})
		}
	}

	messages := e.buildMessages(ctx, res.Context, history, query)

	res.Answers = make([]Answer, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		wg.Add(1)
		go func(i int, s Slot) {
			defer wg.Done()
			res.Answers[i] = e.generate(ctx, s, messages)
		}(i, s)
	}
	wg.Wait()

	return res, nil
}

// buildMessages assembles the shared prompt: instructions with context,
// the allowed history turns, then the query.
func (e *Engine) buildMessages(ctx context.Context, contextText string, history []conversation.Turn, query string) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: SystemMessage(e.systemPrompt, contextText)}}
	for _, t := range history {
		switch t.Role {
		case conversation.RoleUser:
			if !e.gate.AllowHistoryTurn(ctx, t.Content) {
				continue
			}
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: t.Content})
		case conversation.RoleAssistant:
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: t.Content})
		}
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: query})
}

// generate calls one slot under its own timeout.
func (e *Engine) generate(ctx context.Context, s Slot, messages []llm.Message) Answer {
	ans := Answer{Slot: s.Label, Model: s.Model}

	req := llm.CompletionRequest{
		Model:       s.Model,
		Messages:    messages,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	}
	if s.Kind.FlatPrompt() {
		system, user := llm.FlattenMessages(messages)
		req.Messages = []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.Provider.Complete(callCtx, req)
	ans.Latency = time.Since(start)
	if err != nil {
		ans.Err = err
		ans.Error = err.Error()
		ans.Text = e.errorText(s, err)
		return ans
	}

	if resp.Model != "" {
		ans.Model = resp.Model
	}
	ans.InputTokens = resp.InputTokens
	ans.OutputTokens = resp.OutputTokens
	// Some providers (generic HTTP, ollama) report no usage.
	if ans.InputTokens == 0 && ans.OutputTokens == 0 {
		for _, m := range messages {
			ans.InputTokens += llm.EstimateTokens(m.Content)
		}
		ans.OutputTokens = llm.EstimateTokens(resp.Content)
	}
	ans.Cost = llm.EstimateCost(ans.Model, ans.InputTokens, ans.OutputTokens)

	text, v := e.gate.CheckOutput(ctx, s.Label, resp.Content)
	ans.Text = text
	if !v.Allowed {
		ans.OutputVerdict = &v
	}
	return ans
}

func (e *Engine) errorText(s Slot, err error) string {
	if llm.IsShapeError(err) {
		e.logger.Printf("assistant: ALERT %s returned an unreadable response: %v", s.Label, err)
		return ShapeErrorMessage
	}
	e.logger.Printf("assistant: %s failed: %v", s.Label, err)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Error from %s: no response within %s", s.Label, e.timeout)
	}
	return fmt.Sprintf("Error from %s: %v", s.Label, err)
}
