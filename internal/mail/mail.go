package mail

import "context"

// Template names understood by the delivery worker.
const (
	TemplateConfirm       = "confirm"
	TemplateResetPassword = "reset_password"
	TemplateChangeEmail   = "change_email"
)

// Message is one outbound notification. Data carries template variables,
// typically the account token and a link base.
type Message struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// Sender dispatches a message. Dispatch is fire-and-forget from the
// account core's point of view: a failed send never rolls back the state
// transition that produced it, the caller only gets the outcome to shape
// its own messaging.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
