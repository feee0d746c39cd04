// File: internal/services/turn/sink_test.go
package turn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyra-app/calyra/internal/domain"
)

func TestSink_InsertsNewMessages(t *testing.T) {
	chatRepo := newFakeChatRepo()
	msgRepo := newFakeMessageRepo()
	sink := NewSink(chatRepo, msgRepo, testLogger())

	finalized := []domain.Message{
		{ID: "a1", ChatID: "chat-1", Role: domain.RoleAssistant,
			Parts: []domain.Part{{Type: domain.PartTypeText, Text: "hi"}}},
	}
	sink.Commit("chat-1", map[string]bool{}, finalized)

	stored := msgRepo.stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "a1", stored[0].ID)
	assert.Empty(t, msgRepo.updated)
	assert.Equal(t, []string{"chat-1"}, chatRepo.touched)
}

func TestSink_UpdatesExistingMessages(t *testing.T) {
	chatRepo := newFakeChatRepo()
	msgRepo := newFakeMessageRepo()
	sink := NewSink(chatRepo, msgRepo, testLogger())

	patched := domain.Message{
		ID: "m2", ChatID: "chat-1", Role: domain.RoleAssistant,
		Parts: []domain.Part{{
			Type:     domain.PartTypeTool,
			ToolName: "createGoal",
			CallID:   "c1",
			State:    domain.ToolStateCompleted,
		}},
	}
	sink.Commit("chat-1", map[string]bool{"m2": true}, []domain.Message{patched})

	assert.Empty(t, msgRepo.stored())
	require.Contains(t, msgRepo.updated, "m2")
	assert.Equal(t, domain.ToolStateCompleted, msgRepo.updated["m2"][0].State)
}

func TestSink_MixedInsertAndUpdate(t *testing.T) {
	chatRepo := newFakeChatRepo()
	msgRepo := newFakeMessageRepo()
	sink := NewSink(chatRepo, msgRepo, testLogger())

	finalized := []domain.Message{
		{ID: "m2", ChatID: "chat-1", Role: domain.RoleAssistant,
			Parts: []domain.Part{{Type: domain.PartTypeTool, State: domain.ToolStateDenied}}},
		{ID: "a1", ChatID: "chat-1", Role: domain.RoleAssistant,
			Parts: []domain.Part{{Type: domain.PartTypeText, Text: "okay, skipped"}}},
	}
	sink.Commit("chat-1", map[string]bool{"m2": true}, finalized)

	require.Len(t, msgRepo.stored(), 1)
	assert.Equal(t, "a1", msgRepo.stored()[0].ID)
	assert.Contains(t, msgRepo.updated, "m2")
}

func TestSink_EmptyCommitIsNoOp(t *testing.T) {
	chatRepo := newFakeChatRepo()
	msgRepo := newFakeMessageRepo()
	sink := NewSink(chatRepo, msgRepo, testLogger())

	sink.Commit("chat-1", map[string]bool{}, nil)

	assert.Empty(t, msgRepo.stored())
	assert.Empty(t, chatRepo.touched)
}

func TestSink_FailuresAreSwallowed(t *testing.T) {
	chatRepo := newFakeChatRepo()
	msgRepo := newFakeMessageRepo()
	msgRepo.createErr = errors.New("disk full")
	sink := NewSink(chatRepo, msgRepo, testLogger())

	// Must not panic or propagate anything.
	sink.Commit("chat-1", map[string]bool{}, []domain.Message{
		{ID: "a1", ChatID: "chat-1", Role: domain.RoleAssistant},
	})
	assert.Equal(t, []string{"chat-1"}, chatRepo.touched)
}
