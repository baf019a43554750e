package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/config"
	"github.com/monroehq/photo-pairer/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan [project-id...]",
	Short: "Scan projects for before/after pairs",
	Long: `Scans CompanyCam projects for before/after photo pairs.

Each photo is classified (role, scene keywords, messiness), then pairs are
matched by scene fingerprint with a capture-session fallback. Accepted pairs
are published to the content planner as post drafts, unless --dry-run is set
or no planner is configured. Seen photos and published pairs are remembered
between runs, so re-scanning a project only processes new photos.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("all", false, "Scan every project in the account")
	scanCmd.Flags().String("method", pipeline.MethodAuto, "Match method: auto, fingerprint or batch")
	scanCmd.Flags().String("classifier", "", "Classification backend: openai, gemini or tags (default: auto-detect)")
	scanCmd.Flags().Bool("dry-run", false, "Find pairs but create no drafts")
	scanCmd.Flags().Bool("no-images", false, "Classify from metadata only, without downloading image bytes")
	scanCmd.Flags().Int("concurrency", 5, "Parallel classification requests")
	scanCmd.Flags().Float64("accept-threshold", 0, "Override the minimum composite score to accept a pair")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	scanAll := mustGetBool(cmd, "all")
	if len(args) == 0 && !scanAll {
		return fmt.Errorf("provide project ids or use --all")
	}

	classifierName := mustGetString(cmd, "classifier")
	deps, err := buildPipeline(ctx, cfg, classifierName)
	if err != nil {
		return err
	}
	defer deps.state.close()

	projectIDs := args
	if scanAll {
		projects, err := deps.cam.GetAllProjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		projectIDs = make([]string, len(projects))
		for i, p := range projects {
			projectIDs[i] = p.ID
		}
	}

	pairCfg := pairingConfig(cfg)
	if threshold := mustGetFloat64(cmd, "accept-threshold"); threshold > 0 {
		pairCfg.AcceptThreshold = threshold
	}

	// The tag heuristic never looks at pixels.
	downloadImages := !mustGetBool(cmd, "no-images") && classifierName != classifierTags

	opts := pipeline.ScanOptions{
		Method:         mustGetString(cmd, "method"),
		Concurrency:    mustGetInt(cmd, "concurrency"),
		DownloadImages: downloadImages,
		DryRun:         mustGetBool(cmd, "dry-run"),
	}

	fmt.Printf("Scanning %d projects with %s classifier (%s matching)\n",
		len(projectIDs), deps.classifier.Name(), opts.Method)

	result, err := deps.pipeline.Scan(ctx, projectIDs, pairCfg, opts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := deps.state.save(); err != nil {
		fmt.Printf("Warning: failed to save run state: %v\n", err)
	}

	printScanResult(result, opts.DryRun)

	usage := deps.classifier.GetUsage()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		fmt.Printf("\nTokens: %d in / %d out, estimated cost $%.4f\n",
			usage.InputTokens, usage.OutputTokens, usage.TotalCost)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\n%d errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}

	return nil
}

func printScanResult(result *pipeline.ScanResult, dryRun bool) {
	fmt.Printf("\nScanned %d projects, processed %d photos\n",
		result.ProjectsScanned, result.PhotosProcessed)

	if len(result.PairsFound) == 0 {
		fmt.Println("No new pairs found.")
		return
	}

	rows := make([][]string, len(result.PairsFound))
	for i, found := range result.PairsFound {
		rows[i] = []string{
			found.ProjectID,
			found.Pair.Method,
			found.Pair.Before.ID,
			found.Pair.After.ID,
			fmt.Sprintf("%.2f", found.Pair.Score.Overall),
		}
	}

	fmt.Println(renderTable(
		[]string{"PROJECT", "METHOD", "BEFORE", "AFTER", "SCORE"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))

	if dryRun {
		fmt.Printf("\nDry run: %d pairs found, no drafts created\n", len(result.PairsFound))
	} else {
		fmt.Printf("\n%d pairs found, %d drafts created\n", len(result.PairsFound), result.DraftsCreated)
	}
}
