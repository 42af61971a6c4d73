package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postJSON sends in as a JSON body and decodes a 2xx reply into out.
// Transport failures and non-2xx statuses return *HTTPError; an undecodable
// 2xx body returns *ResponseShapeError.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshalling request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", provider, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &HTTPError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ResponseShapeError{Provider: provider, Reason: err.Error()}
	}
	return nil
}

// splitSystem separates system messages, joined by a blank line, from the
// user/assistant turns for APIs that take the system prompt as its own field.
func splitSystem(msgs []Message) (string, []Message) {
	var system []string
	var turns []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
