package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamelog/pkg/metrics"
	"gamelog/pkg/render"
)

type recordingTransport struct {
	sent []Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func newTestMailer(t *testing.T, transport Transport) *Mailer {
	t.Helper()
	engine, err := render.New()
	require.NoError(t, err)
	m, err := NewMailer(transport, engine, metrics.New())
	require.NoError(t, err)
	return m
}

func TestMailerSends(t *testing.T) {
	transport := &recordingTransport{}
	m := newTestMailer(t, transport)
	ctx := context.Background()

	require.NoError(t, m.SendVerification(ctx, "a@x.com", "alice", "https://g.test/verify-email/tok", 24*time.Hour))
	require.NoError(t, m.SendPasswordReset(ctx, "a@x.com", "https://g.test/reset/tok", time.Hour))
	require.NoError(t, m.SendAccountDeleted(ctx, "a@x.com"))

	require.Len(t, transport.sent, 3)
	assert.Equal(t, SubjectVerify, transport.sent[0].Subject)
	assert.Contains(t, transport.sent[0].HTML, "https://g.test/verify-email/tok")
	assert.Contains(t, transport.sent[0].HTML, "1 day")
	assert.Equal(t, SubjectReset, transport.sent[1].Subject)
	assert.Contains(t, transport.sent[1].HTML, "1 hour")
	assert.Equal(t, SubjectDeleted, transport.sent[2].Subject)
	for _, msg := range transport.sent {
		assert.Equal(t, "a@x.com", msg.To)
	}
}

func TestMailerWrapsTransportFailure(t *testing.T) {
	m := newTestMailer(t, &recordingTransport{err: errors.New("dial tcp: refused")})

	err := m.SendPasswordReset(context.Background(), "a@x.com", "https://g.test/reset/tok", time.Hour)
	assert.ErrorIs(t, err, ErrSend)
}

func TestLogTransportOmitsBody(t *testing.T) {
	var buf bytes.Buffer
	transport := NewLogTransport(zerolog.New(&buf))

	err := transport.Send(context.Background(), Message{To: "a@x.com", Subject: SubjectReset, HTML: "https://g.test/reset/secret-token"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "a@x.com")
	assert.NotContains(t, buf.String(), "secret-token")
}

func TestEnvelopeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "GameLog <no-reply@gamelog.local>", want: "no-reply@gamelog.local"},
		{in: "no-reply@gamelog.local", want: "no-reply@gamelog.local"},
		{in: " plain@x.com ", want: "plain@x.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envelopeAddress(tt.in))
	}
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 day", humanDuration(24*time.Hour))
	assert.Equal(t, "2 days", humanDuration(48*time.Hour))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
}

func TestComposeHeaders(t *testing.T) {
	raw := string(compose("GameLog <n@g.test>", Message{To: "a@x.com", Subject: "Hi", HTML: "<p>x</p>"}))
	assert.Contains(t, raw, "From: GameLog <n@g.test>\r\n")
	assert.Contains(t, raw, "To: a@x.com\r\n")
	assert.Contains(t, raw, "Subject: Hi\r\n")
	assert.Contains(t, raw, "\r\n\r\n<p>x</p>")
}
