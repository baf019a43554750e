package companycam

import (
	"context"
	"fmt"
)

// GetProjects returns a page of projects.
func (c *Client) GetProjects(ctx context.Context, perPage, page int) ([]Project, error) {
	endpoint := fmt.Sprintf("projects?per_page=%d&page=%d", perPage, page)
	projects, err := doGetJSON[[]Project](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("could not get projects: %w", err)
	}
	return *projects, nil
}

// GetAllProjects pages through the full project list.
func (c *Client) GetAllProjects(ctx context.Context) ([]Project, error) {
	const perPage = 100

	var all []Project
	for page := 1; ; page++ {
		projects, err := c.GetProjects(ctx, perPage, page)
		if err != nil {
			return nil, err
		}
		all = append(all, projects...)
		if len(projects) < perPage {
			break
		}
	}
	return all, nil
}

// GetProject returns a single project by id.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	project, err := doGetJSON[Project](ctx, c, "projects/"+projectID)
	if err != nil {
		return nil, fmt.Errorf("could not get project %s: %w", projectID, err)
	}
	return project, nil
}
