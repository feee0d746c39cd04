// File: internal/repository/goal/goal_repository.go
package goal

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/calyra-app/calyra/internal/domain"
)

type gormGoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &gormGoalRepository{db: db}
}

func (r *gormGoalRepository) Create(ctx context.Context, goal *domain.Goal) (*domain.Goal, error) {
	if goal == nil || goal.UserID == 0 || strings.TrimSpace(goal.Title) == "" {
		return nil, errors.New("invalid goal")
	}

	err := r.db.WithContext(ctx).Create(goal).Error
	if err != nil {
		log.Printf("[GoalRepository] Database error creating goal for user ID %d: %v", goal.UserID, err)
		return nil, errors.New("database error creating goal")
	}
	return goal, nil
}
