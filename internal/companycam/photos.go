package companycam

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// GetProjectPhotos returns a page of photos for one project.
func (c *Client) GetProjectPhotos(ctx context.Context, projectID string, perPage, page int) ([]Photo, error) {
	endpoint := fmt.Sprintf("projects/%s/photos?per_page=%d&page=%d", projectID, perPage, page)
	photos, err := doGetJSON[[]Photo](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("could not get photos for project %s: %w", projectID, err)
	}
	return *photos, nil
}

// GetAllProjectPhotos pages through every photo of a project.
func (c *Client) GetAllProjectPhotos(ctx context.Context, projectID string) ([]Photo, error) {
	const perPage = 100

	var all []Photo
	for page := 1; ; page++ {
		photos, err := c.GetProjectPhotos(ctx, projectID, perPage, page)
		if err != nil {
			return nil, err
		}
		all = append(all, photos...)
		if len(photos) < perPage {
			break
		}
	}
	return all, nil
}

// GetRecentPhotos returns the most recent photos across all projects.
func (c *Client) GetRecentPhotos(ctx context.Context, perPage int) ([]Photo, error) {
	endpoint := fmt.Sprintf("photos?per_page=%d", perPage)
	photos, err := doGetJSON[[]Photo](ctx, c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("could not get recent photos: %w", err)
	}
	return *photos, nil
}

// GetPhoto returns a single photo record.
func (c *Client) GetPhoto(ctx context.Context, photoID string) (*Photo, error) {
	photo, err := doGetJSON[Photo](ctx, c, "photos/"+photoID)
	if err != nil {
		return nil, fmt.Errorf("could not get photo %s: %w", photoID, err)
	}
	return photo, nil
}

// DownloadPhoto fetches the image bytes for a photo's original variant.
// The image URL is a public CDN link so no auth header is sent.
func (c *Client) DownloadPhoto(ctx context.Context, photo *Photo) ([]byte, error) {
	url := photo.OriginalURL()
	if url == "" {
		return nil, fmt.Errorf("photo %s has no image URL", photo.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not download photo %s: %w", photo.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read photo data: %w", err)
	}
	return data, nil
}
