package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/config"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List pending draft posts in the content planner",
	Long: `Lists the draft posts the planner is holding for review, so you can
see what earlier scans queued up before running another one.`,
	RunE: runDrafts,
}

func init() {
	rootCmd.AddCommand(draftsCmd)
}

func runDrafts(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Content.URL == "" {
		return errors.New("CONTENT_URL environment variable is required")
	}
	planner, err := newPlanner(cfg)
	if err != nil {
		return err
	}

	drafts, err := planner.ListDrafts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}

	if len(drafts) == 0 {
		fmt.Println("No pending drafts.")
		return nil
	}

	rows := make([][]string, len(drafts))
	for i, d := range drafts {
		rows[i] = []string{
			d.ID,
			strconv.Itoa(len(d.PhotoURLs)),
			strings.Join(d.Tags, ", "),
			truncate(d.Notes, 60),
		}
	}

	fmt.Println(renderTable(
		[]string{"ID", "PHOTOS", "TAGS", "NOTES"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
	fmt.Printf("\nTotal: %d drafts\n", len(drafts))

	return nil
}
