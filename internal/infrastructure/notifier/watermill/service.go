package watermillnotifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gigledger/gigd/internal/core/ports"
)

// service fans mirror updates out over an in-process watermill pub/sub.
// Consumers subscribe by topic; a slow consumer drops messages rather than
// back-pressuring the reconciliation pipeline.
type service struct {
	pubsub *gochannel.GoChannel
}

func NewNotifier() ports.Notifier {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: false},
		watermill.NopLogger{},
	)
	return &service{pubsub}
}

func (s *service) Publish(ctx context.Context, topic string, payload interface{}) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %s", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), buf)
	msg.SetContext(ctx)
	return s.pubsub.Publish(topic, msg)
}

// Subscribe exposes the underlying stream for in-process consumers such as
// the websocket push layer.
func (s *service) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.pubsub.Subscribe(ctx, topic)
}

func (s *service) Close() {
	//nolint:errcheck
	s.pubsub.Close()
}
