package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/ai"
	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/config"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <photo-id>",
	Short: "Classify a single photo",
	Long: `Downloads one CompanyCam photo, runs the configured classifier on it
and prints the verdict. Useful for tuning prompts and spot-checking why a
photo did or did not end up in a pair. Nothing is cached or marked seen.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("classifier", "", "Classification backend: openai, gemini or tags (default: auto-detect)")
	analyzeCmd.Flags().Bool("no-images", false, "Classify from metadata only, without downloading image bytes")
	analyzeCmd.Flags().Bool("comment", false, "Post the verdict back to the photo as a CompanyCam comment")
}

// formatAnalysisComment renders a verdict as a photo comment. The [AI] prefix
// marks machine comments so reruns can recognize already-analyzed photos.
func formatAnalysisComment(a *ai.PhotoAnalysis) string {
	return fmt.Sprintf("[AI] %s | messy %d/10, clean %d/10 | %s | %s",
		a.Classification, a.MessyScore, a.CleanScore,
		strings.Join(a.Tokens, ", "), a.Description)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()
	photoID := args[0]

	cam, err := newCompanyCamClient(cfg)
	if err != nil {
		return err
	}

	classifierName := mustGetString(cmd, "classifier")
	classifier, err := newClassifier(ctx, cfg, classifierName)
	if err != nil {
		return err
	}

	photo, err := cam.GetPhoto(ctx, photoID)
	if err != nil {
		return err
	}

	var imageData []byte
	if !mustGetBool(cmd, "no-images") && classifier.Name() != classifierTags {
		imageData, err = cam.DownloadPhoto(ctx, photo)
		if err != nil {
			return fmt.Errorf("failed to download photo: %w", err)
		}
	}

	tags, err := cam.GetPhotoTags(ctx, photoID)
	if err != nil && !companycam.IsNotFoundError(err) {
		return fmt.Errorf("failed to fetch tags: %w", err)
	}
	tagValues := make([]string, len(tags))
	for i, tag := range tags {
		tagValues[i] = tag.DisplayValue
	}

	pctx := &ai.PhotoContext{
		PhotoID:     photo.ID,
		CapturedAt:  time.Unix(photo.CapturedAt, 0).UTC().Format(time.RFC3339),
		TagValues:   tagValues,
		Description: photo.Description,
	}
	if photo.HasGPS() {
		pctx.Lat = photo.Coordinates.Lat
		pctx.Lng = photo.Coordinates.Lon
	}

	analysis, err := classifier.ClassifyPhoto(ctx, imageData, pctx)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	fmt.Println(renderTable(
		[]string{"FIELD", "VALUE"},
		[][]string{
			{"Photo", photo.ID},
			{"Classifier", classifier.Name()},
			{"Classification", analysis.Classification},
			{"Confidence", fmt.Sprintf("%.2f", analysis.Confidence)},
			{"Messy score", fmt.Sprintf("%d", analysis.MessyScore)},
			{"Clean score", fmt.Sprintf("%d", analysis.CleanScore)},
			{"Tokens", strings.Join(analysis.Tokens, ", ")},
		},
		[]columnAlignment{alignLeft, alignLeft},
	))

	if analysis.Description != "" {
		fmt.Printf("\n%s\n", analysis.Description)
	}

	if mustGetBool(cmd, "comment") {
		if _, err := cam.AddPhotoComment(ctx, photo.ID, formatAnalysisComment(analysis)); err != nil {
			return fmt.Errorf("failed to comment on photo: %w", err)
		}
		fmt.Println("\nComment posted.")
	}

	usage := classifier.GetUsage()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		fmt.Printf("\nTokens: %d in / %d out, estimated cost $%.4f\n",
			usage.InputTokens, usage.OutputTokens, usage.TotalCost)
	}

	return nil
}
