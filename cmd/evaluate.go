package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/config"
	"github.com/ziadkadry99/vachat/internal/conversation"
	"github.com/ziadkadry99/vachat/internal/evaluation"
	"github.com/ziadkadry99/vachat/internal/progress"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score answers with the evaluation service",
	Long:  `Scores stored transcripts or a synthetic dataset and appends the results to evaluation.log_file.`,
}

var evaluateTranscriptCmd = &cobra.Command{
	Use:   "transcript [file]",
	Short: "Score every exchange in a chat transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEvaluateTranscript,
}

var evaluateDatasetCmd = &cobra.Command{
	Use:   "dataset <file>",
	Short: "Run a goldens dataset through the assistant and score the answers",
	Long: `Reads a JSON array of {input, expected_output, context[]} goldens, answers each
input with the selected slots and scores every answer against the expected
output. Without --slot you are asked to pick a model.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluateDataset,
}

func init() {
	evaluateTranscriptCmd.Flags().String("model", "", "model label written to the log (default: first default slot)")
	evaluateDatasetCmd.Flags().StringSlice("slot", nil, "provider slot to evaluate (repeat for comparison)")
	evaluateCmd.AddCommand(evaluateTranscriptCmd, evaluateDatasetCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluateTranscript(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Conversation.LogFile
	if len(args) == 1 {
		path = args[0]
	}
	model, _ := cmd.Flags().GetString("model")
	if model == "" && len(cfg.DefaultSlots) > 0 {
		model = cfg.DefaultSlots[0]
	}

	turns, err := conversation.Load(path)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Printf("Transcript %s is empty.\n", path)
		return nil
	}

	harness, err := createHarnessFromConfig(cfg, 1)
	if err != nil {
		return err
	}

	rows, err := harness.EvaluateTranscript(ctx, turns, model)
	if err != nil {
		return err
	}
	printRows(rows, cfg.Evaluation.Metrics)
	fmt.Printf("Scored %d exchanges; results appended to %s\n", len(rows), cfg.Evaluation.LogFile)
	return nil
}

func runEvaluateDataset(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slots, _ := cmd.Flags().GetStringSlice("slot")
	if len(slots) == 0 {
		slots = pickSlot(cfg)
	}

	goldens, err := evaluation.LoadGoldens(args[0])
	if err != nil {
		return err
	}

	deps, err := setupAssistant(ctx, cfg, slots)
	if err != nil {
		return err
	}
	defer deps.Close()

	n := len(slots)
	if n == 0 {
		n = len(cfg.DefaultSlots)
	}
	harness, err := createHarnessFromConfig(cfg, n, evaluation.WithProgress(progress.NewReporter("Evaluating goldens")))
	if err != nil {
		return err
	}

	rows, err := harness.RunDataset(ctx, deps.engine, goldens, slots)
	if err != nil {
		return err
	}
	printRows(rows, cfg.Evaluation.Metrics)
	fmt.Printf("Evaluated %d goldens; results appended to %s\n", len(rows), cfg.Evaluation.LogFile)
	return nil
}

// pickSlot asks for one configured provider. It returns nil, meaning the
// default slots, when no terminal is available.
func pickSlot(cfg *config.Config) []string {
	labels := make([]string, 0, len(cfg.Providers))
	for l := range cfg.Providers {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	sel := promptui.Select{Label: "Select a model to evaluate", Items: labels}
	_, label, err := sel.Run()
	if err != nil {
		return nil
	}
	return []string{label}
}

// printRows prints mean scores per model.
func printRows(rows []evaluation.Row, metrics []string) {
	type agg struct {
		sum   map[string]float64
		count map[string]int
	}
	byModel := map[string]*agg{}
	var order []string
	for _, r := range rows {
		for _, s := range r.Slots {
			a, ok := byModel[s.Model]
			if !ok {
				a = &agg{sum: map[string]float64{}, count: map[string]int{}}
				byModel[s.Model] = a
				order = append(order, s.Model)
			}
			for m, v := range s.Scores {
				a.sum[m] += v
				a.count[m]++
			}
		}
	}

	for _, model := range order {
		a := byModel[model]
		fmt.Printf("\n%s\n", model)
		for _, m := range metrics {
			if a.count[m] == 0 {
				fmt.Printf("  %-28s n/a\n", m)
				continue
			}
			fmt.Printf("  %-28s %.3f (n=%d)\n", m, a.sum[m]/float64(a.count[m]), a.count[m])
		}
	}
	fmt.Println()
}
