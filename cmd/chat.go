package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/evaluation"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with the VA benefits assistant",
	Long: `Starts an interactive session. After every turn the full transcript, including
the context each answer was generated from, is rewritten to
conversation.log_file. Type /clear to start over and /exit to quit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringSlice("slot", nil, "provider slot to answer with (repeat for comparison)")
	chatCmd.Flags().Bool("resume", false, "continue the transcript in conversation.log_file")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	slots, _ := cmd.Flags().GetStringSlice("slot")
	resume, _ := cmd.Flags().GetBool("resume")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, err := setupAssistant(ctx, cfg, slots)
	if err != nil {
		return err
	}
	defer deps.Close()

	var harness *evaluation.Harness
	if cfg.Evaluation.RecordLiveAnswers {
		n := len(slots)
		if n == 0 {
			n = len(cfg.DefaultSlots)
		}
		if harness, err = createHarnessFromConfig(cfg, n); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: live evaluation disabled: %v\n", err)
		}
	}

	logFile := cfg.Conversation.LogFile
	var history []conversation.Turn
	if resume {
		if history, err = conversation.Load(logFile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Resumed %d turns from %s\n", len(history), logFile)
	}

	fmt.Println("Ask a question about VA benefits. Type /exit to quit.")

	for {
		prompt := promptui.Prompt{Label: "You"}
		input, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			history = nil
			if err := conversation.Save(logFile, history); err != nil {
				return err
			}
			fmt.Println("Conversation cleared.")
			continue
		}

		res, err := deps.engine.Respond(ctx, input, history, slots)
		if err != nil {
			return err
		}
		printResult(res)

		if len(res.Answers) > 0 {
			now := time.Now()
			history = append(history,
				conversation.UserTurn(input, res.Context, now),
				conversation.AssistantTurn(res.Answers[0].Text, now),
			)
			if err := conversation.Save(logFile, history); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: saving transcript: %v\n", err)
			}
		}

		if harness != nil && res.Verdict.Allowed {
			if err := harness.Record(ctx, res); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: recording evaluation: %v\n", err)
			}
		}
	}
}
