package lifecycle

import (
	"context"
	"fmt"

	"propcheck/internal/deficiency/models"
	dErrors "propcheck/pkg/domain-errors"
)

// ArchiveRequest asks to archive or restore one deficient item.
type ArchiveRequest struct {
	PropertyID      string `json:"propertyId"`
	DeficientItemID string `json:"deficientItemId"`
	Archive         bool   `json:"archive"`
}

func (r ArchiveRequest) Validate() error {
	if r.PropertyID == "" || r.DeficientItemID == "" {
		return dErrors.New(dErrors.CodeValidation, "property and deficient item id are required")
	}
	return nil
}

// HandleArchiveRequest applies a manual archive toggle. Requests that match
// the item's current location change nothing.
func (c *Controller) HandleArchiveRequest(ctx context.Context, req ArchiveRequest) (models.ArchiveResult, error) {
	if err := req.Validate(); err != nil {
		return models.ArchiveResult{}, err
	}
	ctx, span := tracer.Start(ctx, "lifecycle.HandleArchiveRequest")
	defer span.End()

	ref := models.Ref{PropertyID: req.PropertyID, ID: req.DeficientItemID}
	result, err := c.repo.ToggleArchive(ctx, ref, req.Archive)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("toggle archive %s/%s: %w", ref.PropertyID, ref.ID, err)
	}
	if result.Changed {
		c.logger.InfoContext(ctx, "deficient item archive toggled",
			"property_id", ref.PropertyID,
			"deficient_item_id", ref.ID,
			"archived", result.Archived,
			"card_id", result.ExternalCardChanged,
		)
		c.recompute(ctx, ref.PropertyID)
	}
	return result, nil
}
