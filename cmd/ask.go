package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/assistant"
	"github.com/ziadkadry99/vachat/internal/conversation"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print each slot's answer",
	Long: `Runs a single turn: the question passes the safety gate, VA.gov context is
retrieved, and one or two provider slots answer side by side. Pass --slot
twice to compare two models.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSlice("slot", nil, "provider slot to answer with (repeat for comparison)")
	askCmd.Flags().Bool("json", false, "output the full result as JSON")
	askCmd.Flags().Bool("record", false, "score the answers and append them to the evaluation log")
	askCmd.Flags().Bool("save", false, "append the exchange to conversation.log_file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slots, _ := cmd.Flags().GetStringSlice("slot")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	record, _ := cmd.Flags().GetBool("record")
	save, _ := cmd.Flags().GetBool("save")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, err := setupAssistant(ctx, cfg, slots)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.engine.Respond(ctx, args[0], nil, slots)
	if err != nil {
		return err
	}

	if record && res.Verdict.Allowed {
		harness, err := createHarnessFromConfig(cfg, len(res.Answers))
		if err != nil {
			return err
		}
		if err := harness.Record(ctx, res); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: recording evaluation: %v\n", err)
		}
	}

	if save && res.Verdict.Allowed && len(res.Answers) > 0 {
		now := time.Now()
		if _, err := conversation.Append(cfg.Conversation.LogFile,
			conversation.UserTurn(args[0], res.Context, now),
			conversation.AssistantTurn(res.Answers[0].Text, now),
		); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: saving transcript: %v\n", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(res)
	return nil
}

// printResult writes a turn's answers and sources to stdout.
func printResult(res *assistant.Result) {
	if !res.Verdict.Allowed {
		fmt.Printf("\n%s\n\n", res.Verdict.Message)
		return
	}

	for _, a := range res.Answers {
		fmt.Printf("\n=== %s (%s) ===\n\n%s\n", a.Slot, a.Model, a.Text)
		if verbose && a.Err == nil {
			fmt.Printf("\n[%d in / %d out tokens, $%.4f, %s]\n", a.InputTokens, a.OutputTokens, a.Cost, a.Latency.Round(time.Millisecond))
		}
	}

	if !res.ContextAvailable {
		fmt.Println("\n(No VA.gov context was available for this answer.)")
		return
	}

	seen := make(map[string]bool)
	var lines []string
	for _, s := range res.Sources {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		line := "  - " + s.URL
		if s.Title != "" {
			line += " (" + s.Title + ")"
		}
		lines = append(lines, line)
	}
	fmt.Printf("\nSources:\n%s\n\n", strings.Join(lines, "\n"))
}
