package chat

import (
	"context"

	"github.com/calyra-app/calyra/internal/domain"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByID(ctx context.Context, id string) (*domain.Chat, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error)
	Delete(ctx context.Context, chatID string, userID uint) (*domain.Chat, error)
	UpdateTitle(ctx context.Context, chatID, title string) error
	TouchUpdatedAt(ctx context.Context, chatID string) error
}
