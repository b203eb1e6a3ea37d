// Package mailer sends transactional email through SES or logs it in development.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Sender is the SES call used by SESMailer.
type Sender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	client      Sender
	fromAddress string
	fromName    string
	logger      *zap.Logger
}

// NewSES creates an SES mailer from an AWS config.
func NewSES(cfg aws.Config, fromAddress, fromName string, logger *zap.Logger) *SESMailer {
	return NewSESWithClient(ses.NewFromConfig(cfg), fromAddress, fromName, logger)
}

// NewSESWithClient wraps an existing SES client.
func NewSESWithClient(client Sender, fromAddress, fromName string, logger *zap.Logger) *SESMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SESMailer{client: client, fromAddress: fromAddress, fromName: fromName, logger: logger}
}

func (s *SESMailer) source() string {
	if s.fromName != "" {
		return fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	return s.fromAddress
}

// Send delivers msg. At least one of HTML or Text must be set.
func (s *SESMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send email: empty recipient")
	}
	input := &ses.SendEmailInput{
		Source: aws.String(s.source()),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: utf8(msg.Subject),
			Body:    &types.Body{},
		},
	}
	if msg.HTML != "" {
		input.Message.Body.Html = utf8(msg.HTML)
	}
	if msg.Text != "" {
		input.Message.Body.Text = utf8(msg.Text)
	}
	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send email via ses: %w", err)
	}
	s.logger.Info("email sent", zap.String("to", msg.To), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

func utf8(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// NopMailer logs instead of sending.
type NopMailer struct {
	logger *zap.Logger
}

// NewNop creates a logging mailer.
func NewNop(logger *zap.Logger) *NopMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NopMailer{logger: logger}
}

func (n *NopMailer) Send(_ context.Context, msg Message) error {
	n.logger.Info("email would be sent (noop)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
