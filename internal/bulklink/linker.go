package bulklink

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/oplink/internal/nextcloud"
)

// NextcloudLinker links files through the integration app on Nextcloud
type NextcloudLinker struct {
	client *nextcloud.Client
}

// NewNextcloudLinker wraps a Nextcloud client as a Linker
func NewNextcloudLinker(client *nextcloud.Client) *NextcloudLinker {
	return &NextcloudLinker{client: client}
}

// LinkFile implements Linker
func (l *NextcloudLinker) LinkFile(ctx context.Context, workPackageID string, file FileRef) error {
	err := l.client.LinkFile(ctx, workPackageID, nextcloud.FileInfo{ID: file.ID, Name: file.Name})
	if err != nil && nextcloud.IsUnreachable(err) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return err
}
