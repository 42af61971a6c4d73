// Package evaluation scores assistant answers against an external scoring
// service and appends the scores to a CSV log. It covers three sources of
// answers: stored chat transcripts, synthetic golden datasets and live
// compare turns.
package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ziadkadry99/vachat/internal/conversation"
)

// NoContext is the retrieval context used for a turn that stored none.
const NoContext = "No context provided"

// Case is one answer to be scored.
type Case struct {
	Input            string              `json:"input"`
	ActualOutput     string              `json:"actual_output"`
	ExpectedOutput   string              `json:"expected_output,omitempty"`
	RetrievalContext []string            `json:"retrieval_context"`
	Turns            []conversation.Turn `json:"turns,omitempty"`
}

// Scores maps a metric name to its score. A metric the scorer could not
// compute is absent.
type Scores map[string]float64

// Scorer computes metric scores for a case.
type Scorer interface {
	Score(ctx context.Context, c Case) (Scores, error)
}

// ScorerError is a transport failure or non-2xx reply from the scoring
// service.
type ScorerError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ScorerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scorer returned status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("scorer request failed: %v", e.Err)
}

func (e *ScorerError) Unwrap() error { return e.Err }

// HTTPScorer posts cases to a scoring service that answers with
// {"scores": {metric: value}}.
type HTTPScorer struct {
	endpoint string
	apiKey   string
	metrics  []string
	client   *http.Client
}

// NewHTTPScorer creates a scorer for endpoint requesting metrics. apiKey is
// sent as a bearer token when non-empty.
func NewHTTPScorer(endpoint, apiKey string, metrics []string, client *http.Client) *HTTPScorer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPScorer{
		endpoint: endpoint,
		apiKey:   apiKey,
		metrics:  metrics,
		client:   client,
	}
}

// Metrics returns the metric names requested from the service.
func (s *HTTPScorer) Metrics() []string { return s.metrics }

type scoreRequest struct {
	Case
	Metrics []string `json:"metrics"`
}

type scoreResponse struct {
	Scores map[string]*float64 `json:"scores"`
}

func (s *HTTPScorer) Score(ctx context.Context, c Case) (Scores, error) {
	body, err := json.Marshal(scoreRequest{Case: c, Metrics: s.metrics})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ScorerError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ScorerError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ScorerError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed scoreResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding scorer response: %w", err)
	}

	// Null scores mean the metric could not be computed.
	scores := make(Scores, len(parsed.Scores))
	for name, v := range parsed.Scores {
		if v != nil {
			scores[name] = *v
		}
	}
	return scores, nil
}
