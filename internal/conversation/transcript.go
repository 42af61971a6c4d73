// Package conversation holds chat turns: the JSON transcript file written by
// the CLI and the SQLite session store used by the server.
package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Context is set on user turns and
// holds the exact context string the answer was generated from.
type Turn struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Context   string `json:"context,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UserTurn builds a user turn stamped with now.
func UserTurn(content, context string, now time.Time) Turn {
	return Turn{Role: RoleUser, Content: content, Context: context, Timestamp: now.UTC().Format(time.RFC3339)}
}

// AssistantTurn builds an assistant turn stamped with now.
func AssistantTurn(content string, now time.Time) Turn {
	return Turn{Role: RoleAssistant, Content: content, Timestamp: now.UTC().Format(time.RFC3339)}
}

// Exchange is a user turn paired with the assistant turn that answered it.
type Exchange struct {
	Query    string
	Response string
	Context  string
	// End is the index just past the assistant turn.
	End int
}

// Exchanges pairs consecutive user/assistant turns. Turns that do not form
// a pair are skipped.
func Exchanges(turns []Turn) []Exchange {
	var out []Exchange
	for i := 0; i+1 < len(turns); i++ {
		if turns[i].Role != RoleUser || turns[i+1].Role != RoleAssistant {
			continue
		}
		out = append(out, Exchange{
			Query:    turns[i].Content,
			Response: turns[i+1].Content,
			Context:  turns[i].Context,
			End:      i + 2,
		})
		i++
	}
	return out
}

// Load reads a transcript file. A missing file is an empty conversation.
func Load(path string) ([]Turn, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	if len(data) == 0 {
		return []Turn{}, nil
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing transcript %s: %w", path, err)
	}
	for i, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return nil, fmt.Errorf("parsing transcript %s: turn %d has unknown role %q", path, i, t.Role)
		}
	}
	return turns, nil
}

// Save rewrites the whole transcript. The file is replaced atomically so a
// crash mid-write never leaves a truncated log.
func Save(path string, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling transcript: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating transcript directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".transcript-*.json")
	if err != nil {
		return fmt.Errorf("creating temp transcript: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing transcript: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing transcript: %w", err)
	}
	return nil
}

// Append loads the transcript at path, appends turns and rewrites it.
func Append(path string, turns ...Turn) ([]Turn, error) {
	all, err := Load(path)
	if err != nil {
		return nil, err
	}
	all = append(all, turns...)
	if err := Save(path, all); err != nil {
		return nil, err
	}
	return all, nil
}
