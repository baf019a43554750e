package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/compose"
	"github.com/monroehq/photo-pairer/internal/config"
)

var composeCmd = &cobra.Command{
	Use:   "compose <before-photo-id> <after-photo-id>",
	Short: "Render a stacked before/after image",
	Long: `Downloads two CompanyCam photos and renders them as a single
labeled before/after image, ready to attach to a post manually.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringP("output", "o", "before-after.jpg", "Output file path")
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	cam, err := newCompanyCamClient(cfg)
	if err != nil {
		return err
	}

	var images [2][]byte
	for i, photoID := range args {
		photo, err := cam.GetPhoto(ctx, photoID)
		if err != nil {
			return err
		}
		data, err := cam.DownloadPhoto(ctx, photo)
		if err != nil {
			return err
		}
		images[i] = data
	}

	stacked, err := compose.Stack(images[0], images[1])
	if err != nil {
		return fmt.Errorf("failed to compose image: %w", err)
	}

	output := mustGetString(cmd, "output")
	if err := os.WriteFile(output, stacked, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", output, len(stacked))
	return nil
}
