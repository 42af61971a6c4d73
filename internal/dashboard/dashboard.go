// Package dashboard serves the browser chat page, its websocket endpoint and
// summary statistics.
package dashboard

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/audit"
	"github.com/ziadkadry99/vachat/internal/export"
)

//go:embed index.html
var indexHTML []byte

// ChunkCounter reports the document store size.
type ChunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// Dashboard provides the chat page and its APIs.
type Dashboard struct {
	service  *assistant.Service
	audit    *audit.Store
	docs     ChunkCounter
	renderer *export.Renderer
}

// New creates a Dashboard. auditStore and docs may be nil; their stats are
// then reported as zero.
func New(svc *assistant.Service, auditStore *audit.Store, docs ChunkCounter) *Dashboard {
	return &Dashboard{
		service:  svc,
		audit:    auditStore,
		docs:     docs,
		renderer: export.NewRenderer(),
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/ws/chat", d.handleWebSocket)
}

// ServeIndex serves the chat page. The page is small and changes with each
// release, so it is never cached.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(indexHTML)
}
