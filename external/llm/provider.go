package llm

import "context"

// Role identifies the author of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one ordered entry in a composed prompt.
type Message struct {
	Role Role
	Text string
}

// Request is a fully composed model call: an optional system instruction
// plus the ordered conversation messages, newest last.
type Request struct {
	SystemInstruction string
	Messages          []Message
}

type Reply struct {
	Text string
}

// Provider generates an assistant reply for a composed request. The reply
// text is never empty on a nil error.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Reply, error)
}
