package services

import (
	"context"

	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/daianaegermichels/financas/internal/server/events"
)

// publish sends e and only logs a failure; events never fail the operation
// that produced them.
func publish(ctx context.Context, p events.Publisher, logger logging.Logger, e events.Event) {
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn(ctx, "event not published", "type", e.Type, "error", err)
	}
}
