package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"arborlead_backend/platform/config"

	qrcode "github.com/skip2/go-qrcode"
	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// SendLeadAssignedEmail tells a partner a new lead is waiting.
func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail, region, expiresAt string) error {
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Nytt uppdrag",
			Heading: "Nytt uppdrag väntar på dig",
		},
		Region:    region,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadAssigned, content)
}

// SendLeadAcceptedEmail confirms to the customer that an arborist took
// their inquiry.
func (s *SMTPSender) SendLeadAcceptedEmail(ctx context.Context, toEmail, customerName string) error {
	content, err := renderEmailTemplate("lead_accepted.html", leadAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Förfrågan mottagen",
			Heading: "Vi har tagit emot din förfrågan",
		},
		CustomerName: customerName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadAccepted, content)
}

// SendQuoteEmail delivers the offer with a portal link. The same link is
// attached as a QR code for customers reading on paper or another screen.
func (s *SMTPSender) SendQuoteEmail(ctx context.Context, toEmail, customerName, totalFormatted, portalURL string) error {
	content, err := renderEmailTemplate("quote_sent.html", quoteEmailData{
		baseEmailData: baseEmailData{
			Title:    "Din offert",
			Heading:  "Din offert är klar",
			CTALabel: "Visa offert",
			CTAURL:   portalURL,
		},
		CustomerName:   customerName,
		TotalFormatted: totalFormatted,
	})
	if err != nil {
		return err
	}

	var attachments []Attachment
	if png, err := qrcode.Encode(portalURL, qrcode.Medium, 256); err == nil {
		attachments = append(attachments, Attachment{FileName: "offert-qr.png", Content: png})
	}

	return s.send(ctx, toEmail, fmt.Sprintf(subjectQuoteFmt, totalFormatted), content, attachments...)
}

// SendQuoteRespondedEmail tells the partner how the customer decided.
func (s *SMTPSender) SendQuoteRespondedEmail(ctx context.Context, toEmail, decision, feedback, totalFormatted string) error {
	decisionLabel := "godkänd"
	if decision != "approved" {
		decisionLabel = "avböjd"
	}

	content, err := renderEmailTemplate("quote_responded.html", quoteRespondedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Offertsvar",
			Heading: fmt.Sprintf("Offerten blev %s", decisionLabel),
		},
		Decision:       decisionLabel,
		Feedback:       feedback,
		TotalFormatted: totalFormatted,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectQuoteRespondedFmt, decisionLabel), content)
}

// FormatSEK renders öre as kronor for email bodies.
func FormatSEK(ore int64) string {
	return fmt.Sprintf("%d.%02d", ore/100, ore%100)
}
