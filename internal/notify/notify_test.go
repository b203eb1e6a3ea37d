package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/moderation"
	"github.com/campus-events/backend/pkg/queue"
)

type fakeEnqueuer struct {
	got []queue.ModerationNoticePayload
	err error
}

func (f *fakeEnqueuer) EnqueueModerationNotice(_ context.Context, p queue.ModerationNoticePayload) error {
	f.got = append(f.got, p)
	return f.err
}

type recorder struct{ got []Notice }

func (r *recorder) Publish(_ context.Context, n Notice) { r.got = append(r.got, n) }

func TestQueuePublisherOnlyQueuesDecisions(t *testing.T) {
	q := &fakeEnqueuer{}
	p := NewQueuePublisher(q, zap.NewNop())
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	p.Publish(context.Background(), Notice{Entity: EntityEvent, EntityID: "e1", Action: moderation.ActionSubmit})
	p.Publish(context.Background(), Notice{Entity: EntityEvent, EntityID: "e1", Title: "Hack Night", OwnerID: "a1", Action: moderation.ActionApprove, At: at})
	p.Publish(context.Background(), Notice{Entity: EntityOrganization, EntityID: "o1", Action: moderation.ActionReject})

	require.Len(t, q.got, 2)
	assert.Equal(t, queue.ModerationNoticePayload{
		Entity: "event", EntityID: "e1", Title: "Hack Night", OwnerID: "a1", Action: "approved", At: at,
	}, q.got[0])
	assert.Equal(t, "rejected", q.got[1].Action)
}

func TestQueuePublisherSwallowsErrors(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis down")}
	p := NewQueuePublisher(q, nil)
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), Notice{Action: moderation.ActionApprove})
	})
	assert.Len(t, q.got, 1)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, Nop{}, b}
	m.Publish(context.Background(), Notice{EntityID: "x"})
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}
