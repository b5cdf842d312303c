package controller

import (
	"context"
	"fmt"
	"log/slog"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/metrics"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
)

// DeleteRequest describes the group a user is asked to confirm deleting.
type DeleteRequest struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	FileCount   int    `json:"file_count"`
}

// Prompt is the confirmation question shown to the user.
func (r DeleteRequest) Prompt() string {
	return fmt.Sprintf("Delete %q and all %d of its files? This cannot be undone.", r.DisplayName, r.FileCount)
}

// Confirmer asks the user to accept a deletion.
type Confirmer interface {
	Confirm(ctx context.Context, req DeleteRequest) (bool, error)
}

type ConfirmFunc func(ctx context.Context, req DeleteRequest) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, req DeleteRequest) (bool, error) {
	return f(ctx, req)
}

// DeleteGroup removes the stored directory of a displayed group after the
// user confirms. The group stays displayed until the next reconciliation
// no longer lists it.
func (c *Controller) DeleteGroup(ctx context.Context, key string, confirmer Confirmer) error {
	group, ok := c.Group(key)
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrGroupNotFound, key)
	}

	req := DeleteRequest{Key: group.Key, DisplayName: group.DisplayName, FileCount: len(group.Files)}

	confirmed := false
	if confirmer != nil {
		var err error
		confirmed, err = confirmer.Confirm(ctx, req)
		if err != nil {
			return err
		}
	}
	if !confirmed {
		metrics.RecordDelete("cancelled")
		return model.ErrDeleteCancelled
	}

	if err := c.backend.DeleteDirectory(ctx, group.Key); err != nil {
		metrics.RecordDelete("error")
		slog.Warn("delete failed", "key", group.Key, "error", err)
		c.reporter.Emit(model.StatusError, fmt.Sprintf("Could not delete %s: %s", group.DisplayName, ocrclient.Describe(err)))
		return fmt.Errorf("%w: %w", model.ErrDeleteFailed, err)
	}

	metrics.RecordDelete("success")
	slog.Info("document deleted", "key", group.Key, "files", len(group.Files))
	c.reporter.Emit(model.StatusSuccess, fmt.Sprintf("%s deleted", group.DisplayName))
	c.publish(event.TypeDocumentDeleted, req)

	if err := c.refresh(ctx); err != nil {
		slog.Warn("refresh after delete failed", "key", group.Key, "error", err)
	}

	return nil
}
