package evaluation

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// SlotScore is one model's answer and its scores within a logged row.
type SlotScore struct {
	Model    string
	Response string
	Scores   Scores
}

// Row is one line of the evaluation log.
type Row struct {
	Timestamp time.Time
	Query     string
	Slots     []SlotScore
}

// CSVLog appends evaluation rows to a CSV file. The header is written only
// when the file is new or empty. Columns are timestamp, query, then for each
// slot n: model_n, response_n and one <metric>_n column per metric.
type CSVLog struct {
	mu      sync.Mutex
	path    string
	metrics []string
	slots   int
}

// NewCSVLog creates a log at path with room for slots answers per row.
func NewCSVLog(path string, metrics []string, slots int) *CSVLog {
	if slots < 1 {
		slots = 1
	}
	return &CSVLog{path: path, metrics: metrics, slots: slots}
}

// Path returns the file the log writes to.
func (l *CSVLog) Path() string { return l.path }

// Header returns the column names.
func (l *CSVLog) Header() []string {
	header := []string{"timestamp", "query"}
	for n := 1; n <= l.slots; n++ {
		header = append(header, fmt.Sprintf("model_%d", n), fmt.Sprintf("response_%d", n))
		for _, m := range l.metrics {
			header = append(header, fmt.Sprintf("%s_%d", m, n))
		}
	}
	return header
}

func (l *CSVLog) record(row Row) []string {
	ts := row.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	rec := []string{ts.UTC().Format(time.RFC3339), row.Query}
	for n := 0; n < l.slots; n++ {
		var s SlotScore
		if n < len(row.Slots) {
			s = row.Slots[n]
		}
		rec = append(rec, s.Model, s.Response)
		for _, m := range l.metrics {
			v, ok := s.Scores[m]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return rec
}

// Append writes rows, preceded by the header if the file is new or empty.
func (l *CSVLog) Append(rows ...Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening evaluation log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat evaluation log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(l.Header()); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(l.record(row)); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing evaluation log: %w", err)
	}
	return nil
}
