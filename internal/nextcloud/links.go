package nextcloud

import (
	"context"
	"fmt"
	"net/http"
)

// FileInfo identifies a Nextcloud file by its file id
type FileInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type linkRequest struct {
	Values linkValues `json:"values"`
}

type linkValues struct {
	WorkPackageID string     `json:"workpackageId"`
	FileInfo      []FileInfo `json:"fileinfo"`
}

// LinkFile links one file to an OpenProject work package
func (c *Client) LinkFile(ctx context.Context, workPackageID string, file FileInfo) error {
	req := linkRequest{Values: linkValues{WorkPackageID: workPackageID, FileInfo: []FileInfo{file}}}

	var linked []int64
	if err := c.do(ctx, http.MethodPost, "/work-packages", req, &linked); err != nil {
		return fmt.Errorf("linking file %d to work package %s: %w", file.ID, workPackageID, err)
	}
	return nil
}
