package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/mailer"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/moderation"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/queue"
)

// Jobs is the queue surface the worker consumes.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor emails owners about moderation decisions on their organizations and events.
type NotificationProcessor struct {
	accounts store.Accounts
	mailer   mailer.Mailer
	renderer *mailer.Renderer
	jobs     Jobs
	logger   *zap.Logger
	backoff  time.Duration
}

// NewNotificationProcessor creates a notification processor.
func NewNotificationProcessor(accounts store.Accounts, m mailer.Mailer, jobs Jobs, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		accounts: accounts,
		mailer:   m,
		renderer: mailer.NewRenderer(),
		jobs:     jobs,
		logger:   logger,
		backoff:  queue.RetryBackoff,
	}
}

// Process executes one job. Jobs whose owner no longer exists are dropped.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeModerationNotice {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ModerationNoticePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	owner, err := p.accounts.GetByID(ctx, payload.OwnerID)
	if errors.Is(err, models.ErrNotFound) {
		p.logger.Info("notice owner gone, dropping", zap.String("job_id", job.ID), zap.String("owner_id", payload.OwnerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load owner: %w", err)
	}

	msg, err := p.renderer.Message(owner.Email, mailer.TemplateModerationDecision, mailer.ModerationDecisionData{
		Name:     owner.Name,
		Entity:   payload.Entity,
		Title:    payload.Title,
		Approved: payload.Action == string(moderation.ActionApprove),
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	p.logger.Info("moderation notice sent",
		zap.String("job_id", job.ID),
		zap.String("entity", payload.Entity),
		zap.String("entity_id", payload.EntityID),
		zap.String("action", payload.Action),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.backoff):
	}
}
