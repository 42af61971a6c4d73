package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/vachat/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export [transcript]",
	Short: "Render a chat transcript as an HTML page",
	Long:  `Renders a saved conversation (default: conversation.log_file) to a standalone HTML page with the retrieved context of each question.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		src := cfg.Conversation.LogFile
		if len(args) == 1 {
			src = args[0]
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = strings.TrimSuffix(src, filepath.Ext(src)) + ".html"
		}

		n, err := export.NewRenderer().TranscriptFile(src, out)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d turns to %s\n", n, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output HTML file (default: transcript name with .html)")
	rootCmd.AddCommand(exportCmd)
}
