// File: internal/services/turn/assembler.go
package turn

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/repository/chat"
	"github.com/calyra-app/calyra/internal/repository/message"
	"github.com/calyra-app/calyra/internal/services"
)

// Assembler resolves which flow a request follows and builds the exact
// ordered message context handed to the generation engine.
//
// Persistence here is best-effort by design: a failed history load,
// chat create or user-message save is logged and the turn proceeds
// with whatever context is available. The product promise is that the
// user always gets a reply; only authorization failures and an empty
// context abort the turn.
type Assembler struct {
	chatRepo    chat.ChatRepository
	messageRepo message.MessageRepository
	logger      services.Logger
}

func NewAssembler(
	chatRepo chat.ChatRepository,
	messageRepo message.MessageRepository,
	logger services.Logger,
) *Assembler {
	return &Assembler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// Assemble authorizes the caller against the chat and produces the
// turn context. A non-empty transcript selects the continuation flow
// and is trusted verbatim; otherwise persisted history plus the new
// user message becomes the context.
func (a *Assembler) Assemble(ctx context.Context, userID uint, req *Request) (*AssembledTurn, error) {
	if len(req.Messages) > 0 {
		return a.assembleContinuation(ctx, userID, req)
	}
	return a.assembleNewMessage(ctx, userID, req)
}

func (a *Assembler) assembleContinuation(ctx context.Context, userID uint, req *Request) (*AssembledTurn, error) {
	chatRecord, err := a.chatRepo.FindByID(ctx, req.ChatID)
	if err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			return nil, NewNotFoundError("assemble", "chat not found")
		}
		return nil, NewNotFoundError("assemble", "chat could not be loaded")
	}
	if chatRecord.UserID != userID {
		return nil, NewForbiddenError("assemble")
	}

	// The client already holds full context; the transcript replaces
	// any persisted history for this turn.
	existing := make(map[string]bool, len(req.Messages))
	for i := range req.Messages {
		existing[req.Messages[i].ID] = true
		if req.Messages[i].ChatID == "" {
			req.Messages[i].ChatID = req.ChatID
		}
	}

	return &AssembledTurn{
		Flow:        FlowContinuation,
		Chat:        chatRecord,
		Messages:    req.Messages,
		ExistingIDs: existing,
	}, nil
}

func (a *Assembler) assembleNewMessage(ctx context.Context, userID uint, req *Request) (*AssembledTurn, error) {
	userMessage := req.Message
	if userMessage.ID == "" {
		userMessage.ID = uuid.NewString()
	}
	userMessage.ChatID = req.ChatID
	if userMessage.CreatedAt.IsZero() {
		userMessage.CreatedAt = time.Now()
	}

	assembled := &AssembledTurn{
		Flow:          FlowNewMessage,
		ExistingIDs:   map[string]bool{},
		FirstUserText: userMessage.TextContent(),
	}

	chatRecord, err := a.chatRepo.FindByID(ctx, req.ChatID)
	switch {
	case err == nil:
		if chatRecord.UserID != userID {
			return nil, NewForbiddenError("assemble")
		}
		assembled.Chat = chatRecord
	default:
		// Lookup failure means the chat does not exist yet; create it
		// lazily with a placeholder title. Even a failed create is
		// non-fatal, the turn runs against the in-memory record.
		visibility := req.Visibility
		if visibility == "" {
			visibility = domain.VisibilityPrivate
		}
		newChat := &domain.Chat{
			ID:         req.ChatID,
			UserID:     userID,
			Title:      domain.PlaceholderTitle,
			Visibility: visibility,
		}
		if _, createErr := a.chatRepo.Create(ctx, newChat); createErr != nil {
			a.logger.Error("failed to create chat, proceeding without record",
				"chat_id", req.ChatID, "error", createErr)
		}
		assembled.Chat = newChat
		assembled.NewChat = true
	}

	// Load history best-effort.
	history, err := a.messageRepo.FindByChatID(ctx, req.ChatID)
	if err != nil {
		a.logger.Error("failed to load chat history, proceeding without it",
			"chat_id", req.ChatID, "error", err)
		history = nil
	}

	assembled.Messages = append(history, *userMessage)
	for i := range history {
		assembled.ExistingIDs[history[i].ID] = true
	}

	// Save the incoming user message best-effort.
	if _, err := a.messageRepo.Create(ctx, userMessage); err != nil {
		a.logger.Error("failed to save user message, proceeding",
			"chat_id", req.ChatID, "message_id", userMessage.ID, "error", err)
	}

	if len(assembled.Messages) == 0 {
		return nil, NewBadRequestError("assemble", "a turn must have at least one message")
	}
	return assembled, nil
}
