package message

import (
	"context"
	"time"

	"github.com/calyra-app/calyra/internal/domain"
)

// MessageRepository handles message data operations.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	CreateBatch(ctx context.Context, messages []domain.Message) error
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)
	UpdateParts(ctx context.Context, messageID string, parts []domain.Part) error
	CountUserMessagesSince(ctx context.Context, userID uint, since time.Time) (int64, error)
}
