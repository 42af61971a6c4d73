package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Out: &buf, Description: "Embedding chunks"}

	r.Start(4)
	r.Update(2, "https://www.va.gov/education/")
	r.Update(4, "https://www.va.gov/housing-assistance/")
	r.Finish()

	out := buf.String()
	for _, want := range []string{
		"Embedding chunks: 4 items",
		"[2/4] https://www.va.gov/education/",
		"[4/4] https://www.va.gov/housing-assistance/",
		"Embedding chunks: done",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCIReporterStep(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Out: &buf, Description: "Scoring", Step: 10}

	r.Start(25)
	for i := 1; i <= 25; i++ {
		r.Update(i, "golden")
	}

	lines := strings.Count(buf.String(), "golden")
	if lines != 3 {
		t.Errorf("printed %d progress lines, want 3 (10, 20, 25):\n%s", lines, buf.String())
	}
}

func TestNewReporterCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}

func TestNewReporterTerminal(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	if _, ok := NewReporter("x").(*TerminalReporter); !ok {
		t.Error("expected TerminalReporter outside CI")
	}
}

func TestTerminalReporterUpdateBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{Out: &buf, Description: "Embedding chunks"}
	r.Update(1, "ignored")
	r.Finish()
	r.Start(2)
	r.Update(2, "u")
	r.Finish()
}
