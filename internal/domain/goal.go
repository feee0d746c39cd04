// File: internal/domain/goal.go
package domain

import "time"

// Goal is a row in the goal planner app. The orchestrator only touches
// it through the createGoal tool; everything else about the planner
// lives outside this service.
type Goal struct {
	ID         uint   `json:"id" gorm:"primarykey"`
	UserID     uint   `json:"user_id" gorm:"not null;index"`
	Title      string `json:"title" gorm:"not null"`
	TargetDate string `json:"target_date,omitempty"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
