// File: internal/repository/stream/stream_repository.go
package stream

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/calyra-app/calyra/internal/domain"
)

var ErrStreamNotFound = errors.New("stream handle not found")

type gormStreamRepository struct {
	db *gorm.DB
}

func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &gormStreamRepository{db: db}
}

func (r *gormStreamRepository) Create(ctx context.Context, handle *domain.StreamHandle) error {
	if handle == nil || handle.ID == "" || handle.ChatID == "" {
		return errors.New("invalid stream handle")
	}

	err := r.db.WithContext(ctx).Create(handle).Error
	if err != nil {
		log.Printf("[StreamRepository] Database error creating handle %s for chat ID %s: %v", handle.ID, handle.ChatID, err)
		return errors.New("database error creating stream handle")
	}
	return nil
}

func (r *gormStreamRepository) FindByChatID(ctx context.Context, chatID string) ([]domain.StreamHandle, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var handles []domain.StreamHandle
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&handles).Error

	if err != nil {
		log.Printf("[StreamRepository] Database error finding handles for chat ID %s: %v", chatID, err)
		return nil, errors.New("database error fetching stream handles")
	}
	return handles, nil
}

// FindLatestByChatID returns the most recent handle for a chat. Stream
// ids are ULIDs, so id order and creation order agree.
func (r *gormStreamRepository) FindLatestByChatID(ctx context.Context, chatID string) (*domain.StreamHandle, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var handle domain.StreamHandle
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id DESC").
		First(&handle).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStreamNotFound
		}
		log.Printf("[StreamRepository] Database error finding latest handle for chat ID %s: %v", chatID, err)
		return nil, errors.New("database error fetching stream handle")
	}
	return &handle, nil
}
