package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/spec-kit/guestlist-service/internal/config"
)

// EmailSender delivers invite emails. Implementations may no-op when
// unconfigured, failing on use rather than at startup.
type EmailSender interface {
	SendInvite(ctx context.Context, toEmail, toName, token string, qrPNG []byte) error
}

// MailerSendSender sends invites through the MailerSend API.
type MailerSendSender struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	replyTo string
	event   config.EventConfig
	enabled bool
}

// NewMailerSendSender builds the sender; it stays disabled when the API
// key or from address is missing.
func NewMailerSendSender(cfg config.EmailConfig, event config.EventConfig) *MailerSendSender {
	s := &MailerSendSender{
		from: mailersend.From{
			Name:  cfg.FromName,
			Email: cfg.FromEmail,
		},
		replyTo: cfg.ReplyTo,
		event:   event,
		enabled: cfg.APIKey != "" && cfg.FromEmail != "",
	}
	if s.enabled {
		s.client = mailersend.NewMailersend(cfg.APIKey)
	}
	return s
}

// Enabled reports whether the provider is configured.
func (s *MailerSendSender) Enabled() bool {
	return s.enabled
}

// SendInvite sends the invitation email carrying the QR as an inline
// attachment plus the check-in link as a fallback.
func (s *MailerSendSender) SendInvite(ctx context.Context, toEmail, toName, token string, qrPNG []byte) error {
	if !s.enabled {
		return &ProviderError{Provider: "mailersend", StatusCode: 500, Body: "mailer disabled (missing MAILERSEND_API_KEY or EMAIL_FROM)"}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	link := s.checkinLink(token)
	subject := fmt.Sprintf("Invitation - %s", s.event.Name)

	msg := s.client.Email.NewMessage()
	msg.SetFrom(s.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(fmt.Sprintf("Hello %s, your check-in QR code is attached. You can also use the link: %s", toName, link))
	msg.SetHTML(inviteHTML(s.event.Name, toName, link))
	if strings.TrimSpace(s.replyTo) != "" {
		msg.SetReplyTo(mailersend.ReplyTo{Email: s.replyTo})
	}
	msg.AddAttachment(mailersend.Attachment{
		Filename:    "qrcode.png",
		Content:     base64.StdEncoding.EncodeToString(qrPNG),
		ID:          "qrcode",
		Disposition: mailersend.DispositionInline,
	})

	res, err := s.client.Email.Send(ctx, msg)
	if err != nil {
		return &ProviderError{Provider: "mailersend", StatusCode: 502, Body: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return &ProviderError{
			Provider:   "mailersend",
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}

func (s *MailerSendSender) checkinLink(token string) string {
	base := strings.TrimRight(s.event.AppBaseURL, "/")
	return base + "/checkin?token=" + url.QueryEscape(token)
}

func inviteHTML(eventName, guestName, link string) string {
	return fmt.Sprintf(`
  <div style="font-family:Arial,Helvetica,sans-serif; max-width:600px; margin:auto;">
    <h2 style="margin:0 0 8px">Invitation: %s</h2>
    <p style="margin:0 0 12px">Hello <b>%s</b>,</p>
    <p style="margin:0 0 16px">Your check-in QR code is attached and also embedded below:</p>
    <p style="text-align:center; margin:16px 0">
      <img src="cid:qrcode" alt="QR Code" style="max-width:200px; width:100%%; height:auto" />
    </p>
    <p style="margin:16px 0">Or go directly to:
      <a href="%s">%s</a>
    </p>
    <hr />
    <small>If you do not recognize this invitation, please ignore this email.</small>
  </div>`,
		html.EscapeString(eventName),
		html.EscapeString(guestName),
		link, html.EscapeString(link))
}
