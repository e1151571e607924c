package service

import (
	"context"

	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/pubsub"
)

// Domain event types.
const (
	EventFollowed                 = "social.followed"
	EventUnfollowed               = "social.unfollowed"
	EventRegistrationCreated      = "registration.created"
	EventRegistrationStatusChange = "registration.status_changed"
	EventRegistrationCancelled    = "registration.cancelled"
)

type FollowPayload struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

type RegistrationPayload struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	UserID         string `json:"user_id"`
	From           string `json:"from,omitempty"`
	Status         string `json:"status"`
}

// Notifier publishes domain events after commit. Delivery is best effort:
// failures are logged and never reach the caller.
type Notifier struct {
	publisher pubsub.Publisher
	topic     string
}

func NewNotifier(publisher pubsub.Publisher, topic string) *Notifier {
	if publisher == nil {
		publisher = pubsub.NopPublisher{}
	}
	return &Notifier{publisher: publisher, topic: topic}
}

func (n *Notifier) Publish(ctx context.Context, eventType, key string, payload interface{}) {
	l := pkglog.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, key, payload)
	if err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to build domain event")
		return
	}

	pubCtx, cancel := afterCommit(ctx)
	defer cancel()

	if err := n.publisher.Publish(pubCtx, n.topic, event); err != nil {
		l.Warn().Err(err).
			Str("event_type", eventType).
			Str("key", key).
			Msg("failed to publish domain event")
	}
}
