package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var chatMessages = []Message{
	{Role: RoleSystem, Content: "You are a VA assistant."},
	{Role: RoleUser, Content: "How do I apply for disability compensation?"},
}

func TestAnthropicProviderFlattensBlocks(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		io.WriteString(w, `{
			"model": "claude-3-sonnet-20240229",
			"stop_reason": "end_turn",
			"content": [{"type":"text","text":"Apply online."},{"type":"text","text":"Or call."}],
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", "claude-3-sonnet-20240229", srv.URL, srv.Client())
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages, Temperature: 0.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Apply online.\nOr call." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if gotReq.System != "You are a VA assistant." {
		t.Errorf("system not separated: %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 1000 {
		t.Errorf("max_tokens default = %d, want 1000", gotReq.MaxTokens)
	}
}

func TestAnthropicProviderNon2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "m", srv.URL, srv.Client())
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if he.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", he.StatusCode)
	}
}

func TestAnthropicProviderMissingContentIsShapeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"model":"m","content":[{"type":"tool_use","id":"t"}]}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", "m", srv.URL, srv.Client())
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	if !IsShapeError(err) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestGenericHTTPProvider(t *testing.T) {
	var got genericRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "azure-key" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Use VA.gov."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4}}`)
	}))
	defer srv.Close()

	p := NewGenericHTTPProvider("azure-key", "gpt-4o-mini", srv.URL, srv.Client())
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages, Temperature: 0.7, MaxTokens: 800})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Use VA.gov." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("model should fall back to configured model, got %q", resp.Model)
	}
	if got.System != "You are a VA assistant." || got.User != "How do I apply for disability compensation?" {
		t.Errorf("payload = %+v", got)
	}
	if got.Temperature != 0.7 || got.MaxTokens != 800 {
		t.Errorf("payload params = %+v", got)
	}
}

func TestGenericHTTPProviderShapeErrors(t *testing.T) {
	bodies := []string{
		`{"choices":[]}`,
		`{"choices":[{"message":{}}]}`,
		`not json`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		}))
		p := NewGenericHTTPProvider("k", "m", srv.URL, srv.Client())
		_, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
		if !IsShapeError(err) {
			t.Errorf("body %q: expected shape error, got %v", body, err)
		}
		srv.Close()
	}
}

func TestGenericHTTPProviderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewGenericHTTPProvider("k", "m", url, nil)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if he.StatusCode != 0 {
		t.Errorf("transport failure should have no status, got %d", he.StatusCode)
	}
}

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer or-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","model":"llama","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2}}`)
	}))
	defer srv.Close()

	p := NewCompatibleProvider("or-key", "llama", srv.URL+"/v1", nil)
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" || resp.OutputTokens != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAIProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"message":"invalid key","type":"invalid_request_error"}}`)
			return
		}
		io.WriteString(w, `{"id":"1","model":"m","choices":[]}`)
	}))
	defer srv.Close()

	p := NewCompatibleProvider("bad-key", "m", srv.URL+"/v1", nil)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 *HTTPError, got %v", err)
	}

	p = NewCompatibleProvider("good-key", "m", srv.URL+"/v1", nil)
	_, err = p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	if !IsShapeError(err) {
		t.Fatalf("expected shape error for empty choices, got %v", err)
	}
}

func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream should be false")
		}
		io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"local answer"},"done":true,"done_reason":"stop","prompt_eval_count":7,"eval_count":3}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", srv.Client())
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "local answer" || resp.InputTokens != 7 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGeminiProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gemini-1.5-pro:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SystemInstruction == nil {
			t.Error("system instruction missing")
		}
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"gem"},{"text":"ini"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider("g-key", "gemini-1.5-pro", srv.URL, srv.Client())
	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "gemini" || resp.FinishReason != "STOP" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGeminiProviderNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider("k", "m", srv.URL, srv.Client())
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: chatMessages})
	if !IsShapeError(err) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestHTTPErrorMessages(t *testing.T) {
	e := &HTTPError{Provider: "p", StatusCode: 502, Body: "bad gateway"}
	if !strings.Contains(e.Error(), "502") {
		t.Errorf("error = %q", e.Error())
	}
	inner := errors.New("connection refused")
	e = &HTTPError{Provider: "p", Err: inner}
	if !errors.Is(e, inner) {
		t.Error("HTTPError should unwrap to its cause")
	}
}

func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "context"},
		{Role: RoleAssistant, Content: "hello"},
	})
	if system != "rules\n\ncontext" {
		t.Errorf("system = %q", system)
	}
	if len(turns) != 2 || turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Errorf("turns = %+v", turns)
	}
}

func TestPostJSONClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad-status" {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := postJSON(context.Background(), srv.Client(), "test", srv.URL+"/bad-status", nil, map[string]string{}, &out)
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected HTTPError 503, got %v", err)
	}

	err = postJSON(context.Background(), srv.Client(), "test", srv.URL+"/garbage", nil, map[string]string{}, &out)
	if !IsShapeError(err) {
		t.Errorf("expected shape error, got %v", err)
	}
}

func TestGeminiRedactsKeyFromTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	p := NewGeminiProvider("secret-key-123", "gemini-2.0-flash", base, nil)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-key-123") {
		t.Errorf("key leaked in error: %v", err)
	}
}
