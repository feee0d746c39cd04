// File: internal/services/tools/goal.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/repository/goal"
)

// NewCreateGoalTool returns the goal-planner write tool. It mutates
// user data, so the gate holds it for approval before executing.
func NewCreateGoalTool(goalRepo goal.GoalRepository) Descriptor {
	return Descriptor{
		Name:        "createGoal",
		Description: "Create a new goal in the user's goal planner.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title":      {"type": "string", "description": "Short name of the goal"},
				"targetDate": {"type": "string", "description": "Optional target date, YYYY-MM-DD"}
			},
			"required": ["title"]
		}`),
		SideEffectFree: false,
		Execute: func(ctx context.Context, inv Invocation) (json.RawMessage, error) {
			var input struct {
				Title      string `json:"title"`
				TargetDate string `json:"targetDate"`
			}
			if err := json.Unmarshal(inv.Input, &input); err != nil {
				return nil, fmt.Errorf("invalid createGoal input: %w", err)
			}
			if strings.TrimSpace(input.Title) == "" {
				return nil, fmt.Errorf("createGoal requires a title")
			}

			created, err := goalRepo.Create(ctx, &domain.Goal{
				UserID:     inv.UserID,
				Title:      input.Title,
				TargetDate: input.TargetDate,
			})
			if err != nil {
				return nil, err
			}

			return json.Marshal(map[string]interface{}{
				"id":    created.ID,
				"title": created.Title,
			})
		},
	}
}
