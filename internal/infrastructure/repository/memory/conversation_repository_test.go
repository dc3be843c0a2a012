package memory

import (
	"testing"
	"time"

	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
)

func turnAt(role conversation.Role, text string, minute int) conversation.Turn {
	return conversation.Turn{
		Role:      role,
		Text:      text,
		Timestamp: time.Date(2025, 9, 1, 12, minute, 0, 0, time.UTC),
	}
}

func TestConversationRepository_AppendAndList(t *testing.T) {
	t.Parallel()

	repo := NewConversationRepository()
	first := []conversation.Turn{
		turnAt(conversation.RoleUser, "who do I captain?", 0),
		turnAt(conversation.RoleAssistant, "Salah.", 1),
	}
	second := []conversation.Turn{
		turnAt(conversation.RoleUser, "and vice?", 2),
		turnAt(conversation.RoleAssistant, "Haaland.", 3),
	}

	if err := repo.AppendTurns(t.Context(), "chat_1", first); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}
	if err := repo.AppendTurns(t.Context(), "chat_1", second); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	turns, err := repo.ListBySession(t.Context(), "chat_1", 0)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Text != "who do I captain?" || turns[3].Text != "Haaland." {
		t.Fatalf("turns out of order: first %q last %q", turns[0].Text, turns[3].Text)
	}
}

func TestConversationRepository_ListKeepsMostRecentWithinLimit(t *testing.T) {
	t.Parallel()

	repo := NewConversationRepository()
	turns := []conversation.Turn{
		turnAt(conversation.RoleUser, "one", 0),
		turnAt(conversation.RoleAssistant, "two", 1),
		turnAt(conversation.RoleUser, "three", 2),
		turnAt(conversation.RoleAssistant, "four", 3),
	}
	if err := repo.AppendTurns(t.Context(), "chat_1", turns); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	recent, err := repo.ListBySession(t.Context(), "chat_1", 2)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(recent))
	}
	if recent[0].Text != "three" || recent[1].Text != "four" {
		t.Fatalf("limit should keep the newest turns, got %q and %q", recent[0].Text, recent[1].Text)
	}
}

func TestConversationRepository_ListClonesAndScopesBySession(t *testing.T) {
	t.Parallel()

	repo := NewConversationRepository()
	if err := repo.AppendTurns(t.Context(), "chat_1", []conversation.Turn{turnAt(conversation.RoleUser, "hello", 0)}); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	other, err := repo.ListBySession(t.Context(), "chat_2", 0)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("sessions must not leak into each other, got %d turns", len(other))
	}

	turns, err := repo.ListBySession(t.Context(), "chat_1", 0)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	turns[0].Text = "mutated"

	again, err := repo.ListBySession(t.Context(), "chat_1", 0)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if again[0].Text != "hello" {
		t.Fatalf("listed turns must be copies, stored text became %q", again[0].Text)
	}
}
