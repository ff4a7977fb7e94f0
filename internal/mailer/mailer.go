// Package mailer sends notification e-mails through Amazon SES.
package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"csrhub/internal/config"
)

// Mailer delivers a single e-mail
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer handles email sending via AWS SES (SESv2 API)
type SESMailer struct {
	client sesAPI
	sender string
}

// New returns an SES mailer, or a no-op mailer when mail is disabled
func New(ctx context.Context, cfg config.MailConfig) (Mailer, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS default config: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(awsCfg), sender: cfg.Sender}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination:      &sestypes.Destination{ToAddresses: []string{to}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(renderHTML(subject, body))},
					Text: &sestypes.Content{Data: aws.String(body)},
				},
			},
		},
	}
	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func renderHTML(subject, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>%s</title></head>
<body style="font-family: sans-serif; color: #333;">
<h2>%s</h2>
<p>%s</p>
<p style="color: #888; font-size: 12px;">You are receiving this because of activity on your CSR Hub account.</p>
</body>
</html>`, html.EscapeString(subject), html.EscapeString(subject), html.EscapeString(body))
}

// Noop discards every message
type Noop struct{}

func (Noop) Send(ctx context.Context, to, subject, body string) error {
	return nil
}
