package stream

import (
	"context"

	"github.com/calyra-app/calyra/internal/domain"
)

// StreamRepository handles stream-handle data operations.
type StreamRepository interface {
	Create(ctx context.Context, handle *domain.StreamHandle) error
	FindByChatID(ctx context.Context, chatID string) ([]domain.StreamHandle, error)
	FindLatestByChatID(ctx context.Context, chatID string) (*domain.StreamHandle, error)
}
