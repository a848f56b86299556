package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	DriverAMQP   = "amqp"
	DriverMemory = "memory"
)

// Provider owns the broker connections of this node.
type Provider struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	driver     string
}

// NewProvider connects to the configured broker.
//
// [AMQP] Each node binds its own non-durable queue (topic name + node id) to a
// fan-out exchange, so every node sees every exported event and filters by
// local membership.
// [MEMORY] A single in-process channel; only for one-node deployments and tests.
func NewProvider(driver, url, nodeID string, logger watermill.LoggerAdapter) (*Provider, error) {
	switch driver {
	case DriverMemory:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, logger)
		return &Provider{publisher: ch, subscriber: ch, driver: driver}, nil

	case DriverAMQP:
		cfg := amqp.NewNonDurablePubSubConfig(url, amqp.GenerateQueueNameTopicNameWithSuffix(nodeID))

		pub, err := amqp.NewPublisher(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("amqp publisher: %w", err)
		}
		sub, err := amqp.NewSubscriber(cfg, logger)
		if err != nil {
			_ = pub.Close()
			return nil, fmt.Errorf("amqp subscriber: %w", err)
		}
		return &Provider{publisher: pub, subscriber: sub, driver: driver}, nil
	}

	return nil, fmt.Errorf("unknown broker driver %q", driver)
}

func (p *Provider) Publisher() message.Publisher   { return p.publisher }
func (p *Provider) Subscriber() message.Subscriber { return p.subscriber }
func (p *Provider) Driver() string                 { return p.driver }

func (p *Provider) Close() error {
	perr := p.publisher.Close()
	if p.driver == DriverMemory {
		// Same GoChannel on both sides.
		return perr
	}
	if serr := p.subscriber.Close(); serr != nil {
		return serr
	}
	return perr
}
