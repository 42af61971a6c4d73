package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/vachat/internal/conversation"
)

func TestFragment(t *testing.T) {
	r := NewRenderer()

	out, err := r.Fragment("## Eligibility\n\n- Served on active duty\n- **Honorable** discharge\n\n| Benefit | Rate |\n|---|---|\n| GI Bill | 100% |\n")
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	for _, want := range []string{`<h2 id="eligibility">`, "<li>Served on active duty</li>", "<strong>Honorable</strong>", "<table>"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestFragmentDropsRawHTML(t *testing.T) {
	out, err := NewRenderer().Fragment("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw HTML passed through: %s", out)
	}
}

func TestTranscript(t *testing.T) {
	turns := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "How do I apply for a home loan?", Context: "Content: VA home loan guaranty\nSource: https://www.va.gov/housing-assistance/", Timestamp: "2024-05-01T12:00:00Z"},
		{Role: conversation.RoleAssistant, Content: "You can apply for a **Certificate of Eligibility** online."},
	}

	var buf bytes.Buffer
	if err := NewRenderer().Transcript(&buf, "Home loans", turns); err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<title>Home loans</title>",
		`class="turn user"`,
		`class="turn assistant"`,
		"<strong>Certificate of Eligibility</strong>",
		"Retrieved context",
		"https://www.va.gov/housing-assistance/",
		"2024-05-01T12:00:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if strings.Count(out, "<details>") != 1 {
		t.Error("only the user turn carries context")
	}
}

func TestTranscriptEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer().Transcript(&buf, "Empty", nil); err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if !strings.Contains(buf.String(), "No turns recorded.") {
		t.Error("expected empty-state message")
	}
}

func TestTranscriptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "chat_history.json")
	turns := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "What is the GI Bill?"},
		{Role: conversation.RoleAssistant, Content: "It helps pay for school."},
	}
	if err := conversation.Save(src, turns); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := filepath.Join(dir, "out", "chat.html")
	n, err := NewRenderer().TranscriptFile(src, dst)
	if err != nil {
		t.Fatalf("TranscriptFile: %v", err)
	}
	if n != 2 {
		t.Errorf("rendered %d turns, want 2", n)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "chat_history.json") {
		t.Error("title should name the source file")
	}
}
