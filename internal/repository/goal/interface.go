package goal

import (
	"context"

	"github.com/calyra-app/calyra/internal/domain"
)

// GoalRepository is the narrow slice of the goal planner app the
// createGoal tool writes through.
type GoalRepository interface {
	Create(ctx context.Context, goal *domain.Goal) (*domain.Goal, error)
}
