package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogTransport records outgoing mail in the log instead of delivering it.
// Only the recipient and subject are logged; bodies carry bearer links.
type LogTransport struct {
	logger zerolog.Logger
}

// NewLogTransport returns a LogTransport writing to logger.
func NewLogTransport(logger zerolog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail delivery skipped, no SMTP host configured")
	return nil
}
