package usecase

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
	"github.com/riskibarqy/fpl-assistant/internal/domain/team"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultTokenBudget = 4096

	// snapshotUnavailableMarker replaces the squad block when no snapshot
	// could be built for this turn.
	snapshotUnavailableMarker = "team data unavailable"

	defaultSystemInstruction = "You are an expert Fantasy Premier League (FPL) assistant. " +
		"Your responses must be in British English. " +
		"Analyse the manager's team data when it is provided and answer their request concisely and helpfully. " +
		"If the conversation drifts away from fantasy football, politely steer it back to the game."
)

// Prompt is the assembled model request for one turn. History holds only the
// turns that fit the token budget, oldest first.
type Prompt struct {
	SystemInstruction string
	SnapshotBlock     string
	ExtraContext      string
	History           []conversation.Turn
	UserMessage       string
	EstimatedTokens   int
	DroppedTurns      int
}

type ComposerConfig struct {
	// TokenBudget caps the estimated size of the whole prompt. Only history
	// is dropped to fit; the squad block and the new message always ride.
	// Zero applies the default.
	TokenBudget int
	// SystemInstruction overrides the built-in assistant persona.
	SystemInstruction string
	// EstimateTokens overrides the size heuristic. The default assumes four
	// bytes per token, rounding up.
	EstimateTokens func(string) int
}

type Composer struct {
	budget   int
	system   string
	estimate func(string) int
}

func NewComposer(cfg ComposerConfig) *Composer {
	budget := cfg.TokenBudget
	if budget <= 0 {
		budget = defaultTokenBudget
	}
	system := strings.TrimSpace(cfg.SystemInstruction)
	if system == "" {
		system = defaultSystemInstruction
	}
	estimate := cfg.EstimateTokens
	if estimate == nil {
		estimate = defaultTokenEstimate
	}

	return &Composer{
		budget:   budget,
		system:   system,
		estimate: estimate,
	}
}

func defaultTokenEstimate(text string) int {
	return (len(text) + 3) / 4
}

// Compose assembles the prompt for one user message. The squad block and the
// message itself are always included whole; history turns are dropped oldest
// first until the estimate fits the budget.
func (c *Composer) Compose(snapshot *team.Snapshot, history []conversation.Turn, userMessage string) (Prompt, error) {
	return c.ComposeWithExtras(snapshot, "", history, userMessage)
}

// ComposeWithExtras threads an optional pre-rendered context section (for
// example the season summary) between the squad block and history. The
// section is dropped whole when it does not fit; history then competes for
// whatever budget remains.
func (c *Composer) ComposeWithExtras(snapshot *team.Snapshot, extraContext string, history []conversation.Turn, userMessage string) (Prompt, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return Prompt{}, fmt.Errorf("%w: user message is required", ErrInvalidInput)
	}

	block := RenderSnapshot(snapshot)
	fixed := c.estimate(c.system) + c.estimate(block) + c.estimate(userMessage)

	extraContext = strings.TrimSpace(extraContext)
	if extraContext != "" {
		cost := c.estimate(extraContext)
		if fixed+cost > c.budget {
			extraContext = ""
		} else {
			fixed += cost
		}
	}

	kept, used, dropped := c.windowHistory(history, c.budget-fixed)

	return Prompt{
		SystemInstruction: c.system,
		SnapshotBlock:     block,
		ExtraContext:      extraContext,
		History:           kept,
		UserMessage:       userMessage,
		EstimatedTokens:   fixed + used,
		DroppedTurns:      dropped,
	}, nil
}

// windowHistory keeps the most recent whole turns whose estimates sum within
// budget and returns them in chronological order.
func (c *Composer) windowHistory(history []conversation.Turn, budget int) ([]conversation.Turn, int, int) {
	if len(history) == 0 {
		return nil, 0, 0
	}

	kept := 0
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		cost := c.estimate(history[i].Text)
		if used+cost > budget {
			break
		}
		used += cost
		kept++
	}
	if kept == 0 {
		return nil, 0, len(history)
	}

	out := make([]conversation.Turn, kept)
	copy(out, history[len(history)-kept:])
	return out, used, len(history) - kept
}

// RenderSnapshot serializes a squad snapshot into the fixed text block fed to
// the model. Squad lines follow pick order, so equal snapshots always render
// to the same string. A nil or empty snapshot renders the unavailable marker.
func RenderSnapshot(snapshot *team.Snapshot) string {
	if snapshot == nil || len(snapshot.Squad) == 0 {
		return snapshotUnavailableMarker
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("--- My FPL Squad ---\n")
	for _, slot := range snapshot.Squad {
		_, _ = buf.WriteString("- ")
		_, _ = buf.WriteString(slot.Player.Name)
		_, _ = buf.WriteString(" (")
		_, _ = buf.WriteString(string(slot.Player.Position))
		if slot.Player.Team != "" {
			_, _ = buf.WriteString(", ")
			_, _ = buf.WriteString(slot.Player.Team)
		}
		_, _ = buf.WriteString(")")
		if slot.Role == team.RoleStarter {
			_, _ = buf.WriteString(" [Starter]")
		} else {
			_, _ = buf.WriteString(" [Bench]")
		}
		if slot.IsCaptain {
			_, _ = buf.WriteString(" (C)")
		} else if slot.IsViceCaptain {
			_, _ = buf.WriteString(" (VC)")
		}
		_ = buf.WriteByte('\n')
	}

	_, _ = buf.WriteString("--- Team Info ---\n")
	if snapshot.TeamName != "" {
		_, _ = fmt.Fprintf(buf, "Team: %s\n", snapshot.TeamName)
	}
	_, _ = fmt.Fprintf(buf, "Gameweek: %d\n", snapshot.Gameweek)
	_, _ = fmt.Fprintf(buf, "Gameweek Points: %d\n", snapshot.GameweekPoints)
	_, _ = fmt.Fprintf(buf, "Total Points: %d\n", snapshot.TotalPoints)
	_, _ = fmt.Fprintf(buf, "Overall Rank: %d\n", snapshot.OverallRank)
	_, _ = fmt.Fprintf(buf, "Bank: £%.1fm\n", snapshot.BankBalance)
	_, _ = fmt.Fprintf(buf, "Team Value: £%.1fm\n", snapshot.TeamValue)
	_, _ = fmt.Fprintf(buf, "Transfers Made: %d", snapshot.TransfersMade)

	return buf.String()
}
