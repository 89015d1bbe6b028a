package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aquivis/aquivis/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInvitationMessage(t *testing.T) {
	msg, err := InvitationMessage(InvitationData{
		To:          "tech@x.com",
		InviterName: "Owner <script>",
		CompanyName: "Blue Pools",
		Role:        "technician",
		InviteLink:  "https://app.aquivis.io/invite/accept?token=abc123",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tech@x.com"}, msg.To)
	assert.Equal(t, "You've been invited to join Blue Pools on Aquivis", msg.Subject)
	assert.Contains(t, msg.HTMLBody, `href="https://app.aquivis.io/invite/accept?token=abc123"`)
	assert.Contains(t, msg.HTMLBody, "as a technician")
	assert.NotContains(t, msg.HTMLBody, "<script>")
}

func TestBuildMessageHeaders(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	raw := string(buildMessage("noreply@aquivis.io", Message{
		To:       []string{"a@x.com", "b@x.com"},
		Subject:  "Héllo",
		HTMLBody: "<p>hi</p>",
	}, at))

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "<p>hi</p>", body)
	assert.Contains(t, head, "From: noreply@aquivis.io\r\n")
	assert.Contains(t, head, "To: a@x.com, b@x.com\r\n")
	assert.Contains(t, head, "Subject: =?utf-8?q?H=C3=A9llo?=\r\n")
	assert.Contains(t, head, "Date: Sun, 01 Mar 2026 09:00:00 +0000")
}

func TestNewFromConfigWithoutRelay(t *testing.T) {
	p := NewFromConfig(config.Config{}, zaptest.NewLogger(t))
	_, ok := p.(*NoOpProvider)
	assert.True(t, ok)
	assert.NoError(t, p.Send(context.Background(), Message{To: []string{"x@y.z"}}))

	p = NewFromConfig(config.Config{SMTP: config.SMTPConfig{Host: "smtp.example.com"}}, zaptest.NewLogger(t))
	smtpProvider, ok := p.(*SMTPProvider)
	require.True(t, ok)
	assert.Equal(t, 587, smtpProvider.cfg.Port)
}

func TestSMTPSendRequiresRecipients(t *testing.T) {
	err := NewSMTP(Config{Host: "localhost"}).Send(context.Background(), Message{})
	assert.Error(t, err)
}
