// File: internal/services/turn/sink.go
package turn

import (
	"context"
	"time"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/repository/chat"
	"github.com/calyra-app/calyra/internal/repository/message"
	"github.com/calyra-app/calyra/internal/services"
)

const sinkTimeout = 10 * time.Second

// Sink commits the turn's finalized messages once the client already
// has the full content. Commits are fire-and-forget relative to stream
// completion: failures are logged, never surfaced, never retried here.
type Sink struct {
	chatRepo    chat.ChatRepository
	messageRepo message.MessageRepository
	logger      services.Logger
}

func NewSink(
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	logger services.Logger,
) *Sink {
	return &Sink{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// Commit persists the finalized message set. A message whose id
// already existed in the assembled transcript is an update (only its
// tool-invocation parts changed); everything else is an insert. Runs
// on its own context so a client abort cannot cancel it.
func (s *Sink) Commit(chatID string, existingIDs map[string]bool, finalized []domain.Message) {
	if len(finalized) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	var inserts []domain.Message
	for _, m := range finalized {
		if existingIDs[m.ID] {
			if err := s.messageRepo.UpdateParts(ctx, m.ID, m.Parts); err != nil {
				s.logger.Error("failed to update message parts",
					"chat_id", chatID, "message_id", m.ID, "error", err)
			}
			continue
		}
		inserts = append(inserts, m)
	}

	if len(inserts) > 0 {
		if err := s.messageRepo.CreateBatch(ctx, inserts); err != nil {
			s.logger.Error("failed to save finished messages",
				"chat_id", chatID, "count", len(inserts), "error", err)
		}
	}

	if err := s.chatRepo.TouchUpdatedAt(ctx, chatID); err != nil {
		s.logger.Error("failed to touch chat timestamp", "chat_id", chatID, "error", err)
	}
}
