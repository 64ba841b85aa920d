package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Outbox enqueues messages onto a redis stream for the delivery worker.
// Entries stay pending until the worker acknowledges them, so a crashed
// worker never loses a notification.
type Outbox struct {
	client *redis.Client
	stream string
}

func NewOutbox(client *redis.Client, stream string) *Outbox {
	return &Outbox{client: client, stream: stream}
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("marshal mail data: %w", err)
	}

	_, err = o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		Values: map[string]any{
			"type":     "send",
			"to":       msg.To,
			"subject":  msg.Subject,
			"template": msg.Template,
			"data":     string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
