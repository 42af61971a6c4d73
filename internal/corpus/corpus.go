// Package corpus loads crawler output (JSON arrays of VA.gov pages) for
// ingestion into the document store.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ziadkadry99/vachat/internal/vectordb"
)

const schemaURL = "https://vachat.local/schemas/crawl.json"

// Schema describes one crawler output file.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["url", "title", "content"],
    "properties": {
      "url": {"type": "string", "minLength": 1},
      "title": {"type": "string"},
      "content": {"type": "string"},
      "links": {"type": "array", "items": {"type": "string"}}
    }
  }
}`

// Loader reads and validates crawler output files.
type Loader struct {
	schema        *jsonschema.Schema
	minContentLen int
	logger        *log.Logger
}

// NewLoader compiles the crawl schema. Pages whose content is not longer
// than minContentLen characters are skipped; zero keeps every page.
func NewLoader(minContentLen int, logger *log.Logger) (*Loader, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
	if err != nil {
		return nil, fmt.Errorf("parsing crawl schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding crawl schema: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling crawl schema: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{schema: sch, minContentLen: minContentLen, logger: logger}, nil
}

// LoadFile reads one crawler output file.
func (l *Loader) LoadFile(path string) ([]vectordb.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := l.schema.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%s does not match the crawl format: %s", path, verr.Error())
		}
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	var docs []vectordb.SourceDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	kept := docs[:0]
	for _, d := range docs {
		if utf8.RuneCountInString(strings.TrimSpace(d.Content)) <= l.minContentLen {
			l.logger.Printf("corpus: skipping %s: content shorter than %d characters", d.URL, l.minContentLen+1)
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

// Load expands patterns and loads every matching file. Pages repeated
// across files are kept once, first occurrence wins.
func (l *Loader) Load(patterns []string) ([]vectordb.SourceDocument, error) {
	files, err := Expand(patterns)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []vectordb.SourceDocument
	for _, f := range files {
		docs, err := l.LoadFile(f)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if seen[d.URL] {
				continue
			}
			seen[d.URL] = true
			all = append(all, d)
		}
		l.logger.Printf("corpus: loaded %d pages from %s", len(docs), f)
	}
	return all, nil
}

// Expand resolves glob patterns (with ** support) to files. Each pattern
// must match at least one file.
func Expand(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no content files configured")
	}

	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
