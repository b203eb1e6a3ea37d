package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESMailerSend(t *testing.T) {
	client := &fakeSES{}
	m := NewSESWithClient(client, "noreply@example.com", "Campus Events", zap.NewNop())

	err := m.Send(context.Background(), Message{To: "owner@example.com", Subject: "Hi", HTML: "<p>x</p>", Text: "x"})
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, "Campus Events <noreply@example.com>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"owner@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "<p>x</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Equal(t, "x", aws.ToString(client.input.Message.Body.Text.Data))
}

func TestSESMailerTextOnlyAndBareSource(t *testing.T) {
	client := &fakeSES{}
	m := NewSESWithClient(client, "noreply@example.com", "", nil)
	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"}))
	assert.Equal(t, "noreply@example.com", aws.ToString(client.input.Source))
	assert.Nil(t, client.input.Message.Body.Html)
}

func TestSESMailerErrors(t *testing.T) {
	m := NewSESWithClient(&fakeSES{}, "noreply@example.com", "", nil)
	assert.Error(t, m.Send(context.Background(), Message{Subject: "no recipient"}))

	boom := errors.New("throttled")
	m = NewSESWithClient(&fakeSES{err: boom}, "noreply@example.com", "", nil)
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "a@example.com"}), boom)
}

func TestNopMailer(t *testing.T) {
	assert.NoError(t, NewNop(nil).Send(context.Background(), Message{To: "a@example.com"}))
}

func TestRenderModerationDecision(t *testing.T) {
	r := NewRenderer()

	subject, html, text, err := r.Render(TemplateModerationDecision, ModerationDecisionData{
		Name: "Jana", Entity: "event", Title: "Robotics <Day>", Approved: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `Your event "Robotics <Day>" was approved`, subject)
	assert.Contains(t, text, "Hi Jana,")
	assert.Contains(t, text, "now publicly listed")
	assert.Contains(t, html, "Robotics &lt;Day&gt;")

	msg, err := r.Message("o@example.com", TemplateModerationDecision, ModerationDecisionData{
		Name: "Petr", Entity: "organization", Title: "Chess Club",
	})
	require.NoError(t, err)
	assert.Equal(t, "o@example.com", msg.To)
	assert.Equal(t, `Your organization "Chess Club" was not approved`, msg.Subject)
	assert.Contains(t, msg.Text, "reviewed again")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := NewRenderer().Render("missing", nil)
	assert.Error(t, err)
}
