package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stijnblommerde/restaurant-menu/internal/mail"
)

type captureSender struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func TestHandle_SendEntry(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	p := NewProcessor(sender, nil, "mail:outbox", zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"type":     "send",
			"to":       "alice@x.com",
			"subject":  "Confirm Your Account",
			"template": mail.TemplateConfirm,
			"data":     `{"token":"tok-123","name":"alice"}`,
		},
	})
	require.NoError(t, err)

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, "alice@x.com", msg.To)
	assert.Equal(t, mail.TemplateConfirm, msg.Template)
	assert.Equal(t, "tok-123", msg.Data["token"])
}

func TestHandle_MalformedSendEntryDropped(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	p := NewProcessor(sender, nil, "mail:outbox", zerolog.Nop())

	// missing recipient: dropped without retry, not an error
	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "send", "template": mail.TemplateConfirm},
	})
	require.NoError(t, err)
	assert.Empty(t, sender.messages)
}

func TestHandle_BadDataPayload(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	p := NewProcessor(sender, nil, "mail:outbox", zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"type":     "send",
			"to":       "alice@x.com",
			"template": mail.TemplateConfirm,
			"data":     "{not json",
		},
	})
	require.Error(t, err)
	assert.Empty(t, sender.messages)
}

func TestHandle_UnknownTypeIgnored(t *testing.T) {
	t.Parallel()

	p := NewProcessor(&captureSender{}, nil, "mail:outbox", zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "mystery"},
	})
	assert.NoError(t, err)
}
