package ports

import (
	"context"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

// TopicEvent is a push notification delivered by the remote ledger service
// for a subscribed topic.
type TopicEvent struct {
	Topic   string
	Payload []byte
}

// TopicHandler consumes topic events. It is invoked on the subscription
// delivery goroutine and must hand off any long running work.
type TopicHandler func(event TopicEvent)

// NodeService is the boundary with the remote ledger service: balance
// queries, message fetches and the publish/subscribe transport.
type NodeService interface {
	// GetBalance returns the known balance of each given address.
	GetBalance(ctx context.Context, addresses []string) (map[string]uint64, error)
	// GetMessage fetches the full message with the given id.
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	// Subscribe registers the handler for the given push topic.
	Subscribe(topic string, handler TopicHandler) error
	// Unsubscribe tears down the subscriptions for the given topics, or all
	// of them if none is given.
	Unsubscribe(topics ...string) error
}
