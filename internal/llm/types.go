package llm

import (
	"context"
	"fmt"
)

// Provider is one chat backend behind a slot. Complete returns *HTTPError for
// transport and status failures and *ResponseShapeError when the reply
// cannot be read.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Kind identifies an adapter implementation. The set is closed.
type Kind string

const (
	KindPrimaryChat    Kind = "primary-chat"
	KindCompatibleChat Kind = "compatible-chat"
	KindAltChat        Kind = "alt-chat"
	KindGenericHTTP    Kind = "generic-http"
	KindOllama         Kind = "ollama"
	KindGemini         Kind = "gemini"
)

// Kinds lists every supported adapter kind.
var Kinds = []Kind{
	KindPrimaryChat,
	KindCompatibleChat,
	KindAltChat,
	KindGenericHTTP,
	KindOllama,
	KindGemini,
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported provider kind: %q", s)
}

// FlatPrompt reports whether this kind takes a single system+user prompt
// instead of a structured message list. History is folded into the user
// prompt for these adapters.
func (k Kind) FlatPrompt() bool {
	return k == KindGenericHTTP
}

// FlattenMessages collapses a message list into one system string and one
// user string for flat-prompt adapters.
func FlattenMessages(msgs []Message) (system, user string) {
	var sys, conv []string
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			sys = append(sys, m.Content)
		case RoleUser:
			conv = append(conv, "User: "+m.Content)
		case RoleAssistant:
			conv = append(conv, "Assistant: "+m.Content)
		}
	}
	system = joinNonEmpty(sys, "\n\n")
	// A lone user message is sent as-is, without a role prefix.
	if len(conv) == 1 && len(msgs) > 0 && msgs[len(msgs)-1].Role == RoleUser {
		return system, msgs[len(msgs)-1].Content
	}
	return system, joinNonEmpty(conv, "\n\n")
}

func joinNonEmpty(parts []string, sep string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
