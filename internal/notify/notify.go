// Package notify fans moderation activity out to interested parties: owners by email
// through the worker queue and admins through the live feed. Publishing is best effort.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/moderation"
	"github.com/campus-events/backend/pkg/queue"
)

// Entity kinds carried by a Notice.
const (
	EntityOrganization = "organization"
	EntityEvent        = "event"
)

// Notice describes one moderation transition.
type Notice struct {
	Entity   string            `json:"entity"`
	EntityID string            `json:"entityId"`
	Title    string            `json:"title"`
	OwnerID  string            `json:"ownerId"`
	ActorID  string            `json:"actorId,omitempty"`
	Action   moderation.Action `json:"action"`
	At       time.Time         `json:"at"`
}

// Publisher delivers notices. Implementations log their own failures; a failed
// publish never affects the request that caused it.
type Publisher interface {
	Publish(ctx context.Context, n Notice)
}

// Nop discards notices.
type Nop struct{}

func (Nop) Publish(context.Context, Notice) {}

// Multi publishes to every member in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, n Notice) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, n)
		}
	}
}

// Enqueuer is the part of the job queue used by QueuePublisher.
type Enqueuer interface {
	EnqueueModerationNotice(ctx context.Context, payload queue.ModerationNoticePayload) error
}

// QueuePublisher hands admin decisions to the notification worker, which emails the owner.
// Submissions are not queued: they concern admins, who watch the feed.
type QueuePublisher struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewQueuePublisher creates a publisher backed by q.
func NewQueuePublisher(q Enqueuer, logger *zap.Logger) *QueuePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueuePublisher{queue: q, logger: logger}
}

func (p *QueuePublisher) Publish(ctx context.Context, n Notice) {
	if n.Action != moderation.ActionApprove && n.Action != moderation.ActionReject {
		return
	}
	payload := queue.ModerationNoticePayload{
		Entity:   n.Entity,
		EntityID: n.EntityID,
		Title:    n.Title,
		OwnerID:  n.OwnerID,
		Action:   string(n.Action),
		At:       n.At,
	}
	if err := p.queue.EnqueueModerationNotice(ctx, payload); err != nil {
		p.logger.Warn("enqueue moderation notice failed",
			zap.Error(err),
			zap.String("entity", n.Entity),
			zap.String("entity_id", n.EntityID),
		)
	}
}
