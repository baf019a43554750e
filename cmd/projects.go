package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/config"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List CompanyCam projects",
	Long:  `Retrieves and displays projects from your CompanyCam account.`,
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)

	projectsCmd.Flags().Int("count", 50, "Number of projects to retrieve")
	projectsCmd.Flags().Int("page", 1, "Page for pagination")
	projectsCmd.Flags().Bool("all", false, "Fetch every project, ignoring pagination")
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	cam, err := newCompanyCamClient(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var projects []companycam.Project
	if mustGetBool(cmd, "all") {
		projects, err = cam.GetAllProjects(ctx)
	} else {
		projects, err = cam.GetProjects(ctx, mustGetInt(cmd, "count"), mustGetInt(cmd, "page"))
	}
	if err != nil {
		return fmt.Errorf("failed to get projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	rows := make([][]string, len(projects))
	for i, p := range projects {
		rows[i] = []string{
			p.ID,
			p.Name,
			p.Status,
			p.Address.City,
			strconv.Itoa(p.PhotoCount),
			time.Unix(p.UpdatedAt, 0).Format("2006-01-02"),
		}
	}

	fmt.Println(renderTable(
		[]string{"ID", "NAME", "STATUS", "CITY", "PHOTOS", "UPDATED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Printf("\nTotal: %d projects\n", len(projects))

	return nil
}
