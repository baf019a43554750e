package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/config"
	"github.com/monroehq/photo-pairer/internal/pairing"
)

var batchesCmd = &cobra.Command{
	Use:   "batches <project-id>",
	Short: "Preview a project's capture sessions",
	Long: `Groups one project's photos into capture sessions by timestamp gaps
and prints each session with its representative photo. This previews what
batch-mode matching would see, before spending anything on classification.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatches,
}

func init() {
	rootCmd.AddCommand(batchesCmd)

	batchesCmd.Flags().Int("gap", 0, "Max seconds between photos in one session (0 uses PAIRING_GAP_THRESHOLD)")
}

func runBatches(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	projectID := args[0]

	cam, err := newCompanyCamClient(cfg)
	if err != nil {
		return err
	}

	camPhotos, err := cam.GetAllProjectPhotos(cmd.Context(), projectID)
	if err != nil {
		return fmt.Errorf("failed to get photos: %w", err)
	}
	if len(camPhotos) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	photos := make([]pairing.Photo, len(camPhotos))
	for i, cp := range camPhotos {
		photos[i] = pairing.Photo{ID: cp.ID, ProjectID: cp.ProjectID, CapturedAt: cp.CapturedAt}
	}

	pairCfg := pairingConfig(cfg)
	if gap := mustGetInt(cmd, "gap"); gap > 0 {
		pairCfg.GapThreshold = int64(gap)
	}

	batches := pairing.GroupIntoBatches(photos, pairCfg)
	if len(batches) == 0 {
		fmt.Printf("No sessions with at least %d photos.\n", pairCfg.MinBatchSize)
		return nil
	}

	rows := make([][]string, len(batches))
	for i, batch := range batches {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(len(batch.Photos)),
			time.Unix(batch.StartTime(), 0).Format("2006-01-02 15:04"),
			time.Unix(batch.EndTime(), 0).Format("2006-01-02 15:04"),
			batch.Representative().ID,
		}
	}

	fmt.Println(renderTable(
		[]string{"#", "PHOTOS", "START", "END", "REPRESENTATIVE"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
	))
	fmt.Printf("\n%d photos in %d sessions\n", len(camPhotos), len(batches))

	return nil
}
