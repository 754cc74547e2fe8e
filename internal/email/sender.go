// Package email delivers transactional mail for the lead pipeline.
package email

import "context"

// Attachment is an inline file on an outgoing message.
type Attachment struct {
	FileName string
	Content  []byte
}

// Sender delivers the pipeline's transactional messages.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail, region, expiresAt string) error
	SendLeadAcceptedEmail(ctx context.Context, toEmail, customerName string) error
	SendQuoteEmail(ctx context.Context, toEmail, customerName, totalFormatted, portalURL string) error
	SendQuoteRespondedEmail(ctx context.Context, toEmail, decision, feedback, totalFormatted string) error
}

// NoopSender drops all mail; used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, string, string) error { return nil }
func (NoopSender) SendLeadAcceptedEmail(context.Context, string, string) error         { return nil }
func (NoopSender) SendQuoteEmail(context.Context, string, string, string, string) error {
	return nil
}
func (NoopSender) SendQuoteRespondedEmail(context.Context, string, string, string, string) error {
	return nil
}
