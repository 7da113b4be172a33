// Package kafka provides a hook notifier producing hook messages to a
// Kafka cluster.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gotus/gotus/pkg/hooks"
)

// Config collects the cluster and topic settings of the notifier.
type Config struct {
	// Brokers lists the bootstrap addresses, e.g. localhost:9092.
	Brokers []string
	// Topic receives all messages if set. If empty, the hook name is used
	// as the topic.
	Topic string
	// TopicPrefix is prepended to the chosen topic as "<prefix>-<topic>".
	TopicPrefix string
	// RequiredAcks selects the durability of a produce call, default
	// kafka.RequireOne.
	RequiredAcks kafka.RequiredAcks
	// WriteTimeout bounds a single produce call, default ten seconds.
	WriteTimeout time.Duration
}

// Notifier produces hook messages keyed by the upload id, so all events
// of one upload land in the same partition in order.
type Notifier struct {
	writer *kafka.Writer
	config Config
}

// New creates a Kafka notifier. The writer manages its own connections
// and is safe for concurrent use.
func New(config Config) *Notifier {
	if config.RequiredAcks == 0 {
		config.RequiredAcks = kafka.RequireOne
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: config.RequiredAcks,
		WriteTimeout: config.WriteTimeout,
	}

	return &Notifier{
		writer: writer,
		config: config,
	}
}

func (n *Notifier) Name() string {
	return "kafka"
}

func (n *Notifier) Prepare(ctx context.Context) error {
	return nil
}

func (n *Notifier) Send(ctx context.Context, msg hooks.Message) error {
	return n.writer.WriteMessages(ctx, kafka.Message{
		Topic: n.topic(msg.Hook),
		Key:   []byte(msg.UploadID),
		Value: msg.Body,
	})
}

// Close flushes pending messages and releases the writer's connections.
func (n *Notifier) Close() error {
	return n.writer.Close()
}

func (n *Notifier) topic(hook hooks.HookType) string {
	topic := n.config.Topic
	if topic == "" {
		topic = string(hook)
	}
	if n.config.TopicPrefix != "" {
		topic = n.config.TopicPrefix + "-" + topic
	}
	return topic
}
