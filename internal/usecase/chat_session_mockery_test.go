package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-assistant/internal/domain/conversation"
	conversationmock "github.com/riskibarqy/fpl-assistant/internal/mocks/domain/conversation"
	"github.com/stretchr/testify/mock"
)

func TestChatSession_Ask_ArchivesThroughRepositoryUsingMockery(t *testing.T) {
	t.Parallel()

	archive := conversationmock.NewRepository(t)
	session := newTestChatSession(t, ChatSessionConfig{
		ID:       "chat_mockery_1",
		Provider: &stubModelProvider{},
		Archive:  archive,
	})

	archive.
		On("AppendTurns", mock.Anything, "chat_mockery_1", mock.MatchedBy(func(turns []conversation.Turn) bool {
			return len(turns) == 2 &&
				turns[0].Role == conversation.RoleUser && turns[0].Text == "archive this" &&
				turns[1].Role == conversation.RoleAssistant && turns[1].Text != ""
		})).
		Return(nil).
		Once()

	if _, err := session.Ask(t.Context(), "archive this"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
}

func TestChatSession_Ask_ToleratesArchiveErrorUsingMockery(t *testing.T) {
	t.Parallel()

	archive := conversationmock.NewRepository(t)
	session := newTestChatSession(t, ChatSessionConfig{
		Provider: &stubModelProvider{},
		Archive:  archive,
	})

	archive.
		On("AppendTurns", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("insert conversation turns: connection refused")).
		Once()

	reply, err := session.Ask(t.Context(), "still answer me")
	if err != nil {
		t.Fatalf("archive failure must not fail the turn: %v", err)
	}
	if reply == "" {
		t.Fatalf("expected a reply despite the archive failure")
	}
}
