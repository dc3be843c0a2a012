package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/fpl-assistant/external/llm"
	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
	"github.com/riskibarqy/fpl-assistant/internal/domain/team"
	"github.com/riskibarqy/fpl-assistant/internal/platform/id"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
)

const (
	defaultAskAttempts    = 3
	defaultRetryBaseDelay = time.Second
)

const (
	stateIdle int32 = iota
	stateAwaitingReply
	stateFailed
)

// SessionState is the observable lifecycle of a chat session. Failed is
// terminal for the turn that produced it, not for the session.
type SessionState string

const (
	SessionIdle          SessionState = "idle"
	SessionAwaitingReply SessionState = "awaiting_reply"
	SessionFailed        SessionState = "failed"
)

// SnapshotBuilder is the squad aggregation dependency of a chat session.
type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context, managerID int64, gameweek int) (team.Snapshot, error)
}

// SeasonContextBuilder supplies the optional season summary section.
type SeasonContextBuilder interface {
	BuildSeasonContext(ctx context.Context, managerID int64) (SeasonContext, error)
}

const routingInstruction = "You are a message router for a Fantasy Premier League assistant. " +
	"Decide whether answering the user's message requires their current FPL squad data " +
	"(players, captain, bank balance, or transfers). Reply with exactly one word: yes or no."

type ChatSessionConfig struct {
	// ID names the session in archives. Empty generates a random chat_ id.
	ID          string
	Credentials Credentials
	Snapshots   SnapshotBuilder
	Composer    *Composer
	Provider    llm.Provider
	// Season folds a per-gameweek season summary into the prompt when set.
	Season SeasonContextBuilder
	// Archive persists completed turns. Nil disables archiving.
	Archive conversation.Repository
	Logger  *logging.Logger
	// MaxAttempts caps model calls per turn, retrying transient failures.
	// Zero applies the default of three; negative disables retries.
	MaxAttempts int
	// RetryBaseDelay seeds the exponential backoff between attempts. Zero
	// applies the default of one second.
	RetryBaseDelay time.Duration
	// RouteDataNeeds asks the model first whether the message needs squad
	// data, skipping the league fetch for chit-chat. Off by default so every
	// turn stays snapshot-backed.
	RouteDataNeeds bool
}

// ChatSession drives one conversation: snapshot, prompt, model call, history.
// One Ask runs at a time; a second concurrent call fails fast with
// ErrSessionBusy instead of interleaving turns.
type ChatSession struct {
	id        string
	creds     Credentials
	snapshots SnapshotBuilder
	composer  *Composer
	provider  llm.Provider
	season    SeasonContextBuilder
	archive   conversation.Repository
	logger    *logging.Logger

	maxAttempts int
	retryBase   time.Duration
	routing     bool

	state   atomic.Int32
	mu      sync.RWMutex
	history conversation.Transcript
	now     func() time.Time
}

func NewChatSession(cfg ChatSessionConfig) *ChatSession {
	sessionID := strings.TrimSpace(cfg.ID)
	if sessionID == "" {
		if generated, err := id.NewPrefixedGenerator("chat_").NewID(); err == nil {
			sessionID = generated
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultAskAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = defaultRetryBaseDelay
	}
	composer := cfg.Composer
	if composer == nil {
		composer = NewComposer(ComposerConfig{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &ChatSession{
		id:          sessionID,
		creds:       cfg.Credentials,
		snapshots:   cfg.Snapshots,
		composer:    composer,
		provider:    cfg.Provider,
		season:      cfg.Season,
		archive:     cfg.Archive,
		logger:      logger,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		routing:     cfg.RouteDataNeeds,
		now:         time.Now,
	}
}

func (s *ChatSession) ID() string {
	return s.id
}

func (s *ChatSession) State() SessionState {
	switch s.state.Load() {
	case stateAwaitingReply:
		return SessionAwaitingReply
	case stateFailed:
		return SessionFailed
	default:
		return SessionIdle
	}
}

// History returns a copy of the transcript so far, oldest turn first.
func (s *ChatSession) History() conversation.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Clone()
}

// Ask runs one conversation turn and returns the assistant's reply. Success
// appends exactly the user and assistant turns to history; any failure
// appends nothing.
func (s *ChatSession) Ask(ctx context.Context, userMessage string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ChatSession.Ask")
	defer span.End()

	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if err := s.creds.Validate(); err != nil {
		return "", err
	}
	if s.provider == nil {
		return "", fmt.Errorf("%w: model provider is not configured", ErrDependencyUnavailable)
	}

	if err := s.acquire(); err != nil {
		return "", err
	}

	reply, err := s.runTurn(ctx, userMessage)
	if err != nil {
		// An abandoned turn is the caller's doing; keep the session Idle
		// so the next Ask is not reported as a failure follow-up.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.state.Store(stateIdle)
		} else {
			s.state.Store(stateFailed)
		}
		return "", err
	}

	s.state.Store(stateIdle)
	return reply, nil
}

func (s *ChatSession) acquire() error {
	if s.state.CompareAndSwap(stateIdle, stateAwaitingReply) {
		return nil
	}
	if s.state.CompareAndSwap(stateFailed, stateAwaitingReply) {
		return nil
	}
	return fmt.Errorf("%w: a reply is already in flight", ErrSessionBusy)
}

func (s *ChatSession) runTurn(ctx context.Context, userMessage string) (string, error) {
	asked := s.now().UTC()

	snapshot := s.fetchSnapshot(ctx, userMessage)
	prompt, err := s.composer.ComposeWithExtras(snapshot, s.fetchSeasonContext(ctx, snapshot), s.History(), userMessage)
	if err != nil {
		return "", err
	}
	if prompt.DroppedTurns > 0 {
		s.logger.DebugContext(ctx, "trimmed history to fit token budget",
			"session_id", s.id, "dropped_turns", prompt.DroppedTurns, "estimated_tokens", prompt.EstimatedTokens)
	}

	reply, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	turns := []conversation.Turn{
		{Role: conversation.RoleUser, Text: userMessage, Timestamp: asked},
		{Role: conversation.RoleAssistant, Text: reply, Timestamp: s.now().UTC()},
	}
	s.mu.Lock()
	s.history = append(s.history, turns...)
	s.mu.Unlock()

	s.archiveTurns(ctx, turns)
	return reply, nil
}

// fetchSnapshot builds the squad snapshot for this turn. Failures degrade the
// prompt to its unavailable marker; they never fail the turn.
func (s *ChatSession) fetchSnapshot(ctx context.Context, userMessage string) *team.Snapshot {
	if s.snapshots == nil {
		return nil
	}
	if s.routing && !s.needsTeamData(ctx, userMessage) {
		return nil
	}

	snapshot, err := s.snapshots.BuildSnapshot(ctx, s.creds.ManagerID, 0)
	if err != nil {
		s.logger.WarnContext(ctx, "squad snapshot unavailable, degrading prompt",
			"session_id", s.id, "manager_id", s.creds.ManagerID, "error", err)
		return nil
	}
	return &snapshot
}

// fetchSeasonContext renders the season summary section for this turn. It
// only runs on snapshot-backed turns and degrades to nothing on failure.
func (s *ChatSession) fetchSeasonContext(ctx context.Context, snapshot *team.Snapshot) string {
	if s.season == nil || snapshot == nil {
		return ""
	}

	seasonCtx, err := s.season.BuildSeasonContext(ctx, s.creds.ManagerID)
	if err != nil {
		s.logger.WarnContext(ctx, "season context unavailable",
			"session_id", s.id, "manager_id", s.creds.ManagerID, "error", err)
		return ""
	}
	return seasonCtx.Render()
}

// needsTeamData runs a one-shot routing probe. Any ambiguity or probe failure
// keeps the turn snapshot-backed.
func (s *ChatSession) needsTeamData(ctx context.Context, userMessage string) bool {
	reply, err := s.provider.Generate(ctx, llm.Request{
		SystemInstruction: routingInstruction,
		Messages:          []llm.Message{{Role: llm.RoleUser, Text: userMessage}},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "routing probe failed, assuming squad data is needed",
			"session_id", s.id, "error", err)
		return true
	}

	return !strings.HasPrefix(strings.ToLower(strings.TrimSpace(reply.Text)), "no")
}

func (s *ChatSession) generate(ctx context.Context, prompt Prompt) (string, error) {
	req := promptToRequest(prompt)

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(s.retryBase << (attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		reply, err := s.provider.Generate(ctx, req)
		if err == nil {
			return reply.Text, nil
		}
		lastErr = err

		if !errors.Is(err, llm.ErrRetryable) {
			return "", err
		}
		s.logger.WarnContext(ctx, "model call failed, retrying",
			"session_id", s.id, "attempt", attempt+1, "max_attempts", s.maxAttempts, "error", err)
	}

	return "", fmt.Errorf("assistant temporarily unavailable, try again: %w", lastErr)
}

func (s *ChatSession) archiveTurns(ctx context.Context, turns []conversation.Turn) {
	if s.archive == nil {
		return
	}
	if err := s.archive.AppendTurns(ctx, s.id, turns); err != nil {
		s.logger.WarnContext(ctx, "conversation archive write failed",
			"session_id", s.id, "error", err)
	}
}

func promptToRequest(p Prompt) llm.Request {
	messages := make([]llm.Message, 0, len(p.History)+1)
	for _, turn := range p.History {
		role := llm.RoleUser
		if turn.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Text: turn.Text})
	}
	finalText := p.SnapshotBlock
	if p.ExtraContext != "" {
		finalText += "\n\n" + p.ExtraContext
	}
	finalText += "\n\n" + p.UserMessage
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: finalText})

	return llm.Request{
		SystemInstruction: p.SystemInstruction,
		Messages:          messages,
	}
}
