// File: internal/domain/stream.go
package domain

import "time"

// StreamHandle maps a resumable stream id to the chat whose turn
// produced it. Handles outlive the turn so a disconnected client can
// reattach; the stream backend enforces the retention window on the
// buffered frames themselves.
type StreamHandle struct {
	ID        string `json:"id" gorm:"primarykey"`
	ChatID    string `json:"chat_id" gorm:"not null;index"`
	CreatedAt time.Time
}
