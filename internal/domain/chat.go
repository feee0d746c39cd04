// File: internal/domain/chat.go
package domain

import "time"

// Chat visibility values accepted on the wire.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// PlaceholderTitle is set at chat creation and rewritten once the
// title side-task completes.
const PlaceholderTitle = "New chat"

// Chat represents a single conversation thread. Only the owner may
// read, write or delete it.
type Chat struct {
	ID         string `json:"id" gorm:"primarykey"`
	UserID     uint   `json:"user_id" gorm:"not null;index"`
	Title      string `json:"title"`
	Visibility string `json:"visibility" gorm:"default:private"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
