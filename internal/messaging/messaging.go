package messaging

import (
	"context"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// ActivityTopic carries storefront activity events.
const ActivityTopic = "storefront.activity"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event entity.Event) error
}

// Discard drops every event. Used when no broker is configured.
type Discard struct{}

func (Discard) PublishEvent(context.Context, string, entity.Event) error { return nil }
