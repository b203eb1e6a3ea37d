package store

import (
	"context"
	"fmt"

	"github.com/campus-events/backend/internal/models"
)

// PopulateOrganizers attaches the organizer summary to each event with one batched lookup.
// Events whose organization no longer exists keep a nil Organizer.
func PopulateOrganizers(ctx context.Context, orgs Organizations, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e.OrganizerID != "" && !seen[e.OrganizerID] {
			seen[e.OrganizerID] = true
			ids = append(ids, e.OrganizerID)
		}
	}
	found, err := orgs.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("populate organizers: %w", err)
	}
	byID := make(map[string]*models.OrganizerSummary, len(found))
	for _, o := range found {
		byID[o.ID] = o.Summary()
	}
	for _, e := range events {
		e.Organizer = byID[e.OrganizerID]
	}
	return nil
}
