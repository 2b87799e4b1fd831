package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/arvi1709/AI-library/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m...)
	return nil
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestNew_DisabledWithoutHost(t *testing.T) {
	assert.Nil(t, New(&config.Config{}))
	assert.Nil(t, New(nil))
	assert.NotNil(t, New(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, MailFrom: "a@b.c"}))
}

func TestMailer_StoryReported(t *testing.T) {
	s := &captureSender{}
	m := NewWithSender(s, "no-reply@example.com")

	require.NoError(t, m.StoryReported(context.Background(), "author@example.com", "Asha", "Monsoon Letters"))
	require.Len(t, s.sent, 1)

	assert.Equal(t, []string{"author@example.com"}, s.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Your story has been reported"}, s.sent[0].GetHeader("Subject"))
	assert.Contains(t, render(t, s.sent[0]), "Monsoon Letters")
}

func TestMailer_AccountDeleted(t *testing.T) {
	s := &captureSender{}
	m := NewWithSender(s, "no-reply@example.com")

	require.NoError(t, m.AccountDeleted(context.Background(), "gone@example.com"))
	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"Your account has been deleted"}, s.sent[0].GetHeader("Subject"))
}

func TestMailer_NilAndErrors(t *testing.T) {
	var m *Mailer
	assert.NoError(t, m.AccountDeleted(context.Background(), "x@example.com"))

	failing := NewWithSender(&captureSender{err: errors.New("smtp down")}, "no-reply@example.com")
	err := failing.AccountDeleted(context.Background(), "x@example.com")
	assert.ErrorContains(t, err, "smtp down")

	assert.NoError(t, failing.AccountDeleted(context.Background(), ""))
}
