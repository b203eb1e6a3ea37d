package models

// ModerationState is the review state of an Organization or Event.
// Only the boolean projection (Approved) is exposed to API clients.
type ModerationState string

const (
	StatePending  ModerationState = "pending"
	StateApproved ModerationState = "approved"
	StateRejected ModerationState = "rejected"
)

// Approved reports whether the entity is publicly visible.
func (s ModerationState) Approved() bool {
	return s == StateApproved
}
