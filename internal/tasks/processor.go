package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stijnblommerde/restaurant-menu/internal/mail"
)

// Processor turns stream entries into deliveries. "send" entries go out
// through the sender; "trim" entries compact the stream.
type Processor struct {
	sender mail.Sender
	client *redis.Client
	stream string
	logger zerolog.Logger
}

func NewProcessor(sender mail.Sender, client *redis.Client, stream string, logger zerolog.Logger) *Processor {
	return &Processor{
		sender: sender,
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case "send":
		return p.handleSend(ctx, msg)
	case "trim":
		return p.handleTrim(ctx)
	default:
		p.logger.Warn().Str("type", taskType).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleSend(ctx context.Context, msg redis.XMessage) error {
	out := mail.Message{
		To:       stringValue(msg.Values, "to"),
		Subject:  stringValue(msg.Values, "subject"),
		Template: stringValue(msg.Values, "template"),
	}
	if out.To == "" || out.Template == "" {
		p.logger.Warn().Str("message_id", msg.ID).Msg("dropping malformed mail entry")
		return nil
	}

	if raw := stringValue(msg.Values, "data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &out.Data); err != nil {
			return fmt.Errorf("decode mail data: %w", err)
		}
	}

	if err := p.sender.Send(ctx, out); err != nil {
		return fmt.Errorf("deliver to %s: %w", out.To, err)
	}

	p.logger.Info().
		Str("to", out.To).
		Str("template", out.Template).
		Msg("mail delivered")
	return nil
}

// handleTrim drops acknowledged history, keeping a bounded tail for
// inspection.
func (p *Processor) handleTrim(ctx context.Context) error {
	trimmed, err := p.client.XTrimMaxLen(ctx, p.stream, 1000).Result()
	if err != nil {
		return fmt.Errorf("trim stream: %w", err)
	}
	p.logger.Info().Int64("trimmed", trimmed).Msg("outbox trimmed")
	return nil
}

func stringValue(values map[string]interface{}, key string) string {
	s, _ := values[key].(string)
	return s
}
