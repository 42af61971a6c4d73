package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/audit"
	"github.com/ziadkadry99/vachat/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Check text against the content policy and inspect policy events",
}

var policyCheckCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Run the input policy checks on a piece of text",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyCheck,
}

var policyEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded policy events",
	RunE:  runPolicyEvents,
}

func init() {
	policyCheckCmd.Flags().Bool("json", false, "output the verdict as JSON")
	policyEventsCmd.Flags().String("category", "", "only events of this category")
	policyEventsCmd.Flags().Int("limit", 20, "maximum number of events")
	policyEventsCmd.Flags().Bool("summary", false, "print counts instead of events")
	policyEventsCmd.Flags().Duration("prune", 0, "delete events older than this age (e.g. 720h) and exit")
	policyCmd.AddCommand(policyCheckCmd, policyEventsCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	gate, err := createGateFromConfig(cfg, audit.NewStore(database))
	if err != nil {
		return err
	}

	verdict, err := gate.CheckInput(ctx, args[0])
	var failure *policy.CheckFailure
	if err != nil && !errors.As(err, &failure) {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}

	if failure != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", failure)
	}
	if verdict.Allowed {
		fmt.Println("Allowed.")
		return nil
	}
	fmt.Printf("Blocked (%s).\n", verdict.Category)
	if len(verdict.Flagged) > 0 {
		fmt.Printf("Flagged: %s\n", strings.Join(verdict.Flagged, ", "))
	}
	if verdict.Message != "" {
		fmt.Printf("\n%s\n", verdict.Message)
	}
	return nil
}

func runPolicyEvents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	summary, _ := cmd.Flags().GetBool("summary")
	prune, _ := cmd.Flags().GetDuration("prune")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	store := audit.NewStore(database)

	if prune > 0 {
		n, err := store.DeleteBefore(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d policy events older than %s\n", n, prune)
		return nil
	}

	if summary {
		s, err := store.Summarize(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Total events: %d (moderation failures: %d)\n", s.Total, s.Failures)
		for c, n := range s.ByCategory {
			fmt.Printf("  %-24s %d\n", c, n)
		}
		return nil
	}

	events, err := store.Query(ctx, audit.QueryFilter{Category: policy.Category(category), Limit: limit})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No policy events recorded.")
		return nil
	}
	for _, e := range events {
		fmt.Printf("%s  %-6s  %-22s  %s\n", e.Timestamp.Local().Format(time.DateTime), e.Stage, e.Category, truncate(e.Excerpt, 60))
	}
	return nil
}
