package email

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher is the outbound email collaborator. Sends are awaited before
// the surrounding transactional unit commits.
type Dispatcher interface {
	SendEmail(ctx context.Context, to, body, subject string) error
}

// LogDispatcher writes outbound mail to the log instead of delivering it.
// Used by the demo binary and local development.
type LogDispatcher struct {
	logger zerolog.Logger
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) SendEmail(_ context.Context, to, body, subject string) error {
	d.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email dispatched")
	return nil
}
