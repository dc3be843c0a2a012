package conversation

import (
	"fmt"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var AllRoles = map[Role]struct{}{
	RoleUser:      {},
	RoleAssistant: {},
}

// Turn is one utterance in a chat session. Turns are append-only: once
// recorded they are never edited or reordered.
type Turn struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

func (t Turn) Validate() error {
	if _, ok := AllRoles[t.Role]; !ok {
		return fmt.Errorf("invalid turn role: %s", t.Role)
	}
	if t.Text == "" {
		return fmt.Errorf("turn text is required")
	}

	return nil
}

// Transcript is an ordered sequence of turns.
type Transcript []Turn

func (tr Transcript) Clone() Transcript {
	if tr == nil {
		return nil
	}

	return append(Transcript(nil), tr...)
}
