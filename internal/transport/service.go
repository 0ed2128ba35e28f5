package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soundpool/snapsync/models"
)

// GetSnapshot fetches the snapshot manifest for the given project and
// snapshot id from the service endpoint. The manifest carries the project
// blob URL and the ordered block list a sync session is built from.
func (c *Client) GetSnapshot(ctx context.Context, projectID, snapshotID string) (models.SnapshotInfo, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("projectID", projectID).
		SetPathParam("snapshotID", snapshotID).
		Get("/projects/{projectID}/snapshots/{snapshotID}")
	if err != nil {
		return models.SnapshotInfo{}, fmt.Errorf("get snapshot manifest: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return models.SnapshotInfo{}, &HTTPError{Status: resp.StatusCode()}
	}

	var info models.SnapshotInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return models.SnapshotInfo{}, fmt.Errorf("decode snapshot manifest: %w", err)
	}

	return info, nil
}
