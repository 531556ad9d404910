package provider

import (
	"context"
	"log/slog"
)

// DevSender is a MessageSender for local development: it logs each message
// and reports success without talking to any provider.
type DevSender struct {
	Logger *slog.Logger
}

// Send logs the would-be delivery and succeeds.
func (s *DevSender) Send(ctx context.Context, contactAddress, message string) error {
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "dev sender: message delivered",
			"to", contactAddress,
			"length", len(message),
		)
	}
	return nil
}
