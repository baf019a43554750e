package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/config"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent photos across all projects",
	Long: `Retrieves the newest photos in your CompanyCam account, regardless of
project. Useful for a quick look at what the crews uploaded today before
deciding which projects to scan.`,
	RunE: runRecent,
}

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().Int("count", 25, "Number of photos to retrieve")
}

func runRecent(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	cam, err := newCompanyCamClient(cfg)
	if err != nil {
		return err
	}

	photos, err := cam.GetRecentPhotos(cmd.Context(), mustGetInt(cmd, "count"))
	if err != nil {
		return fmt.Errorf("failed to get recent photos: %w", err)
	}

	if len(photos) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	rows := make([][]string, len(photos))
	for i, p := range photos {
		gps := ""
		if p.HasGPS() {
			gps = "yes"
		}
		rows[i] = []string{
			p.ID,
			p.ProjectID,
			time.Unix(p.CapturedAt, 0).Format("2006-01-02 15:04"),
			gps,
			truncate(p.Description, 40),
		}
	}

	fmt.Println(renderTable(
		[]string{"ID", "PROJECT", "CAPTURED", "GPS", "DESCRIPTION"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Printf("\nTotal: %d photos\n", len(photos))

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
