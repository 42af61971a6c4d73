package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/progress"
)

// Responder answers a query across slots. assistant.Engine satisfies it.
type Responder interface {
	Respond(ctx context.Context, query string, history []conversation.Turn, slots []string) (*assistant.Result, error)
}

// Golden is one synthetic dataset entry.
type Golden struct {
	Input          string   `json:"input"`
	ExpectedOutput string   `json:"expected_output"`
	Context        []string `json:"context"`
}

// LoadGoldens reads a JSON array of goldens.
func LoadGoldens(path string) ([]Golden, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	var goldens []Golden
	if err := json.Unmarshal(data, &goldens); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	return goldens, nil
}

// Harness scores answers and logs them.
type Harness struct {
	scorer   Scorer
	log      *CSVLog
	logger   *log.Logger
	progress progress.Reporter
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithLogger sets the logger for scoring failures.
func WithLogger(l *log.Logger) HarnessOption {
	return func(h *Harness) { h.logger = l }
}

// WithProgress reports dataset progress.
func WithProgress(p progress.Reporter) HarnessOption {
	return func(h *Harness) { h.progress = p }
}

// NewHarness creates a harness scoring with scorer and writing to csvLog.
func NewHarness(scorer Scorer, csvLog *CSVLog, opts ...HarnessOption) *Harness {
	h := &Harness{scorer: scorer, log: csvLog}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h
}

// score returns the scores for c. A scoring failure is logged and yields
// no scores so the row is still written with blank metric cells.
func (h *Harness) score(ctx context.Context, c Case) Scores {
	scores, err := h.scorer.Score(ctx, c)
	if err != nil {
		h.logger.Printf("evaluation: scoring %q: %v", truncate(c.Input, 60), err)
		return nil
	}
	return scores
}

// EvaluateTranscript scores each (user, assistant) pair of turns, using the
// user turn's stored context as retrieval context. The answer is compared
// against itself, and the conversation up to and including the pair is
// passed along for conversation-level metrics. model labels the log rows.
func (h *Harness) EvaluateTranscript(ctx context.Context, turns []conversation.Turn, model string) ([]Row, error) {
	var rows []Row
	for _, ex := range conversation.Exchanges(turns) {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		turnContext := ex.Context
		if turnContext == "" {
			turnContext = NoContext
		}

		scores := h.score(ctx, Case{
			Input:            ex.Query,
			ActualOutput:     ex.Response,
			ExpectedOutput:   ex.Response,
			RetrievalContext: []string{turnContext},
			Turns:            turns[:ex.End],
		})
		row := Row{
			Timestamp: time.Now(),
			Query:     ex.Query,
			Slots:     []SlotScore{{Model: model, Response: ex.Response, Scores: scores}},
		}
		if err := h.log.Append(row); err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	h.logger.Printf("evaluation: scored %d exchanges", len(rows))
	return rows, nil
}

// RunDataset sends each golden's input through r with slots, scores every
// slot's answer against the golden's expected output and logs one row per
// golden. The retrieved context is used when retrieval succeeded, otherwise
// the golden's own context.
func (h *Harness) RunDataset(ctx context.Context, r Responder, goldens []Golden, slots []string) ([]Row, error) {
	if h.progress != nil {
		h.progress.Start(len(goldens))
		defer h.progress.Finish()
	}

	rows := make([]Row, 0, len(goldens))
	for i, g := range goldens {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		res, err := r.Respond(ctx, g.Input, nil, slots)
		if err != nil {
			return rows, fmt.Errorf("golden %d: %w", i, err)
		}

		retrieval := g.Context
		if res.ContextAvailable {
			retrieval = []string{res.Context}
		}
		if len(retrieval) == 0 {
			retrieval = []string{NoContext}
		}

		row := h.scoreResult(ctx, res, g.ExpectedOutput, retrieval)
		if err := h.log.Append(row); err != nil {
			return rows, err
		}
		rows = append(rows, row)

		if h.progress != nil {
			h.progress.Update(i+1, truncate(g.Input, 40))
		}
	}
	return rows, nil
}

// Record scores and logs a live turn. It satisfies assistant.Recorder.
func (h *Harness) Record(ctx context.Context, res *assistant.Result) error {
	retrieval := []string{NoContext}
	if res.ContextAvailable {
		retrieval = []string{res.Context}
	}
	return h.log.Append(h.scoreResult(ctx, res, "", retrieval))
}

func (h *Harness) scoreResult(ctx context.Context, res *assistant.Result, expected string, retrieval []string) Row {
	row := Row{Timestamp: time.Now(), Query: res.Query}
	for _, a := range res.Answers {
		s := SlotScore{Model: a.Slot, Response: a.Text}
		// Failed slots are logged without scores.
		if a.Err == nil {
			s.Scores = h.score(ctx, Case{
				Input:            res.Query,
				ActualOutput:     a.Text,
				ExpectedOutput:   expected,
				RetrievalContext: retrieval,
			})
		}
		row.Slots = append(row.Slots, s)
	}
	return row
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var _ assistant.Recorder = (*Harness)(nil)
