package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	execpkg "github.com/ethpandaops/xcli/pkg/exec"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBridge republishes a service's event stream onto a Redis pub/sub
// channel using the stable wire envelope from spec §6, for downstream
// consumers that cannot hold a Go channel subscription open across process
// boundaries.
type RedisBridge struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

// NewRedisBridge builds a bridge publishing to "<prefix>:<service>" for
// each forwarded service.
func NewRedisBridge(client *redis.Client, prefix string, log logrus.FieldLogger) *RedisBridge {
	if prefix == "" {
		prefix = "service-events"
	}

	return &RedisBridge{client: client, prefix: prefix, log: log.WithField("component", "redis-fanout-bridge")}
}

// Forward subscribes to events for service and publishes its envelope to
// Redis until events closes or ctx is done.
func (b *RedisBridge) Forward(ctx context.Context, service string, events <-chan execpkg.Event) error {
	channel := fmt.Sprintf("%s:%s", b.prefix, service)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			envelope := execpkg.NewEnvelope(service, ev)

			data, err := json.Marshal(envelope)
			if err != nil {
				b.log.WithError(err).Warn("failed to marshal event envelope")

				continue
			}

			if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
				b.log.WithError(err).WithField("channel", channel).Warn("failed to publish event")
			}
		}
	}
}
