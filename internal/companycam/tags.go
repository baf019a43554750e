package companycam

import (
	"context"
	"fmt"
)

// GetPhotoTags returns the tags attached to a photo.
func (c *Client) GetPhotoTags(ctx context.Context, photoID string) ([]Tag, error) {
	tags, err := doGetJSON[[]Tag](ctx, c, "photos/"+photoID+"/tags")
	if err != nil {
		return nil, fmt.Errorf("could not get tags for photo %s: %w", photoID, err)
	}
	return *tags, nil
}

// AddPhotoComment attaches a comment to a photo.
func (c *Client) AddPhotoComment(ctx context.Context, photoID, content string) (*Comment, error) {
	body := map[string]any{
		"comment": map[string]string{"content": content},
	}
	comment, err := doPostJSON[Comment](ctx, c, "photos/"+photoID+"/comments", body)
	if err != nil {
		return nil, fmt.Errorf("could not add comment to photo %s: %w", photoID, err)
	}
	return comment, nil
}
