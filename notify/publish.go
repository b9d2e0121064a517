package notify

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"
)

// Publisher is delivering a single notification message to all of its recipients.
type Publisher interface {
	Publish(ctx context.Context, msg string) error
}

// Send is publishing msgs in order. A failed message doesn't stop the
// remaining ones, all errors are returned joined.
func Send(ctx context.Context, p Publisher, msgs []string) error {
	var errs []error

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("message %d/%d: %w", i+1, len(msgs), err))
		}
	}

	return errors.Join(errs...)
}

// LogPublisher is only logging messages, e.g. for dry runs.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a Publisher writing every message to logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, msg string) error {
	p.logger.Info("notification", "message", msg)
	return nil
}
