// Package export renders assistant answers and stored transcripts from
// markdown to HTML.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/ziadkadry99/vachat/internal/conversation"
)

// Renderer converts model markdown to HTML. Raw HTML in model output is
// not passed through.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with GFM tables, autolinks and code
// highlighting.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Renderer{md: md}
}

// Fragment renders markdown text to an HTML fragment.
func (r *Renderer) Fragment(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}

type pageTurn struct {
	Role      string
	Timestamp string
	HTML      template.HTML
	Context   string
}

type pageData struct {
	Title     string
	Generated string
	Turns     []pageTurn
}

// Transcript writes turns as a standalone HTML page. Each user turn's
// retrieved context is shown collapsed beneath it.
func (r *Renderer) Transcript(w io.Writer, title string, turns []conversation.Turn) error {
	tmpl, err := template.New("transcript").Parse(transcriptTemplate)
	if err != nil {
		return fmt.Errorf("parsing transcript template: %w", err)
	}

	data := pageData{
		Title:     title,
		Generated: time.Now().UTC().Format(time.RFC1123),
	}
	for _, t := range turns {
		body, err := r.Fragment(t.Content)
		if err != nil {
			return err
		}
		data.Turns = append(data.Turns, pageTurn{
			Role:      string(t.Role),
			Timestamp: t.Timestamp,
			// Rendered by goldmark without raw HTML passthrough.
			HTML:    template.HTML(body),
			Context: t.Context,
		})
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}

// TranscriptFile loads the transcript at src and writes it as HTML to dst.
func (r *Renderer) TranscriptFile(src, dst string) (int, error) {
	turns, err := conversation.Load(src)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	defer f.Close()

	title := fmt.Sprintf("VA benefits chat: %s", filepath.Base(src))
	if err := r.Transcript(f, title, turns); err != nil {
		return 0, err
	}
	return len(turns), f.Close()
}
