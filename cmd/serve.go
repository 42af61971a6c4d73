package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/audit"
	"github.com/ziadkadry99/vachat/internal/config"
	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/dashboard"
	"github.com/ziadkadry99/vachat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and browser chat",
	Long:  `Starts the vachat HTTP server with the REST API, the policy event log, the websocket chat and the dashboard page.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (default: server.port from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = cfg.Server.Port
	}

	deps, err := setupAssistant(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer deps.Close()

	svc, err := newService(cfg, deps)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:     port,
		DataDir:  cfg.Server.DataDir,
		AllowAll: cfg.Server.AllowAll,
	}, deps.db, deps.docs)

	r := srv.Router()
	assistant.RegisterRoutes(r, svc)
	audit.RegisterRoutes(r, deps.audit)
	dashboard.New(svc, deps.audit, deps.docs).RegisterRoutes(r)

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	chunks, _ := deps.docs.Count(ctx)
	fmt.Fprintf(os.Stderr, "vachat server %s starting on port %d\n", Version, port)
	fmt.Fprintf(os.Stderr, "  Data: %s\n", cfg.Server.DataDir)
	fmt.Fprintf(os.Stderr, "  Chunks indexed: %d\n", chunks)
	fmt.Fprintf(os.Stderr, "  Slots: %v\n", deps.engine.Slots())

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newService wraps deps for multi-session callers. Live answers are scored
// when evaluation.record_live_answers is set.
func newService(cfg *config.Config, deps *assistantDeps) (*assistant.Service, error) {
	svc := &assistant.Service{
		Engine:   deps.engine,
		Search:   deps.docs,
		Gate:     deps.gate,
		Sessions: conversation.NewSessionStore(deps.db),
	}
	if cfg.Evaluation.RecordLiveAnswers {
		harness, err := createHarnessFromConfig(cfg, config.MaxSlots)
		if err != nil {
			return nil, err
		}
		svc.Recorder = harness
	}
	return svc, nil
}
