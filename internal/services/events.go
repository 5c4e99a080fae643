package services

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/notekeeper/apiserver/types"
)

// EventPublisher receives domain events after successful writes.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event types.Event) error
}

// publishEvent is best-effort: a failed publish is logged and never changes
// the outcome of the write that produced it.
func publishEvent(ctx context.Context, publisher EventPublisher, eventType types.EventType, userID, resourceID int64) {
	if publisher == nil {
		return
	}
	event := types.Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	if resourceID > 0 {
		event.ResourceID = strconv.FormatInt(resourceID, 10)
	}
	publish(ctx, publisher, event)
}

func publish(ctx context.Context, publisher EventPublisher, event types.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishEvent(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Int64("user_id", event.UserID).
			Msg("failed to publish event")
	}
}
