package cli

import (
	"context"
	"strings"

	"github.com/gotus/gotus/pkg/hooks"
	"github.com/gotus/gotus/pkg/hooks/amqp"
	"github.com/gotus/gotus/pkg/hooks/file"
	hooks_http "github.com/gotus/gotus/pkg/hooks/http"
	"github.com/gotus/gotus/pkg/hooks/kafka"
	"github.com/gotus/gotus/pkg/hooks/nats"
)

// CreateHookManager builds a manager with one notifier per configured
// transport and prepares their connections.
func CreateHookManager() *hooks.Manager {
	var notifiers []hooks.Notifier

	if Flags.HttpHooksEndpoints != "" {
		stdout.Printf("Using HTTP endpoints '%s' for hooks\n", Flags.HttpHooksEndpoints)

		notifiers = append(notifiers, hooks_http.New(
			splitList(Flags.HttpHooksEndpoints),
			splitList(Flags.HttpHooksForward),
			Flags.HttpHooksTimeout,
		))
	}

	if Flags.FileHooksCommand != "" {
		stdout.Printf("Using '%s' as the hook command\n", Flags.FileHooksCommand)

		notifiers = append(notifiers, file.New(Flags.FileHooksCommand))
	}

	if Flags.FileHooksDir != "" {
		stdout.Printf("Using '%s' for hook scripts\n", Flags.FileHooksDir)

		notifiers = append(notifiers, file.NewDir(Flags.FileHooksDir))
	}

	if Flags.AmqpURL != "" {
		stdout.Printf("Using AMQP broker at '%s' for hooks\n", Flags.AmqpURL)

		notifiers = append(notifiers, amqp.New(amqp.Config{
			URL:             Flags.AmqpURL,
			Exchange:        Flags.AmqpExchange,
			ExchangeKind:    Flags.AmqpExchangeKind,
			RoutingKey:      Flags.AmqpRoutingKey,
			QueuesPrefix:    Flags.AmqpQueuesPrefix,
			DeclareExchange: Flags.AmqpDeclareExchange,
			DeclareQueues:   Flags.AmqpDeclareQueues,
			Durable:         Flags.AmqpDurable,
			Celery:          Flags.AmqpCelery,
			TaskPrefix:      Flags.AmqpTaskPrefix,
		}))
	}

	if Flags.KafkaBrokers != "" {
		stdout.Printf("Using Kafka brokers '%s' for hooks\n", Flags.KafkaBrokers)

		notifiers = append(notifiers, kafka.New(kafka.Config{
			Brokers:      splitList(Flags.KafkaBrokers),
			Topic:        Flags.KafkaTopic,
			TopicPrefix:  Flags.KafkaTopicPrefix,
			WriteTimeout: Flags.KafkaWriteTimeout,
		}))
	}

	if Flags.NatsURL != "" {
		stdout.Printf("Using NATS server at '%s' for hooks\n", Flags.NatsURL)

		notifiers = append(notifiers, nats.New(nats.Config{
			URL:           Flags.NatsURL,
			Subject:       Flags.NatsSubject,
			SubjectPrefix: Flags.NatsSubjectPrefix,
			RequestReply:  Flags.NatsRequestReply,
			Username:      Flags.NatsUsername,
			Password:      Flags.NatsPassword,
			Token:         Flags.NatsToken,
		}))
	}

	manager := hooks.NewManager(Flags.HooksFormat, logger, notifiers...)

	if err := manager.Prepare(context.Background()); err != nil {
		stderr.Fatalf("Unable to prepare hook notifiers: %s", err)
	}

	return manager
}

func splitList(list string) []string {
	var items []string
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
