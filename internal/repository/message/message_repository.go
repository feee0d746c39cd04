// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/calyra-app/calyra/internal/domain"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if message == nil || message.ID == "" || message.ChatID == "" {
		return nil, errors.New("invalid message")
	}

	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error creating message for chat ID %s: %v", message.ChatID, err)
		return nil, errors.New("database error creating message")
	}
	return message, nil
}

func (r *gormMessageRepository) CreateBatch(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Create(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error batch-creating %d messages: %v", len(messages), err)
		return errors.New("database error creating messages")
	}
	return nil
}

func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error

	if err != nil {
		log.Printf("[MessageRepository] Database error finding messages for chat ID %s: %v", chatID, err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

// UpdateParts rewrites the parts column of one message. Used when a
// tool invocation inside an existing message changes state.
func (r *gormMessageRepository) UpdateParts(ctx context.Context, messageID string, parts []domain.Part) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", messageID).
		Update("parts", parts)

	if result.Error != nil {
		log.Printf("[MessageRepository] Database error updating parts for message ID %s: %v", messageID, result.Error)
		return errors.New("database error updating message parts")
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountUserMessagesSince counts user-authored messages across all of a
// user's chats after the given instant. Backs the daily quota check.
func (r *gormMessageRepository) CountUserMessagesSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	if userID == 0 {
		return 0, errors.New("invalid user ID")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.user_id = ? AND messages.role = ? AND messages.created_at >= ?",
			userID, domain.RoleUser, since).
		Count(&count).Error

	if err != nil {
		log.Printf("[MessageRepository] Database error counting messages for user ID %d: %v", userID, err)
		return 0, errors.New("database error counting messages")
	}
	return count, nil
}
