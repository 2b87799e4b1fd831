// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/arvi1709/AI-library/internal/config"

	"gopkg.in/gomail.v2"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer composes the service's notification emails. A nil *Mailer drops every message.
type Mailer struct {
	sender Sender
	from   string
	now    func() time.Time
}

// New returns a Mailer for cfg, or nil when SMTP_HOST is unset.
func New(cfg *config.Config) *Mailer {
	if cfg == nil || !cfg.MailEnabled() {
		return nil
	}
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return NewWithSender(d, cfg.MailFrom)
}

// NewWithSender builds a Mailer around an arbitrary Sender.
func NewWithSender(s Sender, from string) *Mailer {
	return &Mailer{sender: s, from: from, now: time.Now}
}

func (m *Mailer) send(ctx context.Context, to, subject, plain, htmlBody string) error {
	if m == nil || m.sender == nil || to == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("Storyhouse <%s>", m.from))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain)
	msg.AddAlternative("text/html", htmlBody)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	slog.InfoContext(ctx, "email sent", "subject", subject)
	return nil
}

// StoryReported tells an author that one of their stories was reported.
func (m *Mailer) StoryReported(ctx context.Context, to, authorName, title string) error {
	sent := m.stamp()
	plain := fmt.Sprintf(`Hello %s,

Your story "%s" has been reported by a reader and will be looked at by our moderators.

Sent on %s`, authorName, title, sent)
	htmlBody := fmt.Sprintf(`<p>Hello %s,</p>
<p>Your story <strong>%s</strong> has been reported by a reader and will be looked at by our moderators.</p>
<p style="color:#888888;font-size:12px;">Sent on %s</p>`,
		html.EscapeString(authorName), html.EscapeString(title), sent)
	return m.send(ctx, to, "Your story has been reported", plain, htmlBody)
}

// AccountDeleted confirms that an account and its content are gone.
func (m *Mailer) AccountDeleted(ctx context.Context, to string) error {
	sent := m.stamp()
	plain := fmt.Sprintf(`Hello,

Your Storyhouse account and all of its stories, comments and ratings have been deleted.

Sent on %s`, sent)
	htmlBody := fmt.Sprintf(`<p>Hello,</p>
<p>Your Storyhouse account and all of its stories, comments and ratings have been deleted.</p>
<p style="color:#888888;font-size:12px;">Sent on %s</p>`, sent)
	return m.send(ctx, to, "Your account has been deleted", plain, htmlBody)
}

func (m *Mailer) stamp() string {
	if m == nil || m.now == nil {
		return time.Now().Format("Mon, 02 Jan 2006 15:04:05 MST")
	}
	return m.now().Format("Mon, 02 Jan 2006 15:04:05 MST")
}
