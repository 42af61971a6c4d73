package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFlattenContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"single block", `{"type":"text","text":"hello"}`, "hello"},
		{"block list", `[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, "a\nb"},
		{"skips tool use", `[{"type":"tool_use","id":"x","name":"n","input":{}},{"type":"text","text":"only"}]`, "only"},
		{"block without type", `[{"text":"untyped"}]`, "untyped"},
		{"empty string", `""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlattenContent(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlattenContentShapeErrors(t *testing.T) {
	for _, raw := range []string{``, `null`, `42`, `[]`, `[{"type":"image","source":{}}]`, `{"type":"image"}`, `[1,2]`} {
		_, err := FlattenContent(json.RawMessage(raw))
		var se *ResponseShapeError
		if !errors.As(err, &se) {
			t.Errorf("FlattenContent(%s): expected *ResponseShapeError, got %v", raw, err)
		}
	}
}

func TestFlattenContentIdempotent(t *testing.T) {
	inputs := []string{
		`"already text"`,
		`{"type":"text","text":"one"}`,
		`[{"type":"text","text":"one"},{"type":"text","text":"two"}]`,
	}
	for _, raw := range inputs {
		first, err := FlattenContent(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("first pass: %v", err)
		}
		encoded, _ := json.Marshal(first)
		second, err := FlattenContent(encoded)
		if err != nil {
			t.Fatalf("second pass: %v", err)
		}
		if first != second {
			t.Errorf("not idempotent for %s: %q then %q", raw, first, second)
		}
	}
}
