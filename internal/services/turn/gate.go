// File: internal/services/turn/gate.go
package turn

import (
	"context"
	"encoding/json"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/services"
	"github.com/calyra-app/calyra/internal/services/ai"
	"github.com/calyra-app/calyra/internal/services/tools"
)

// Gate is the per-turn approval state machine between the engine's
// tool-call events and the client-visible stream. For every call id it
// enforces proposed -> awaiting-approval -> {approved -> executing ->
// completed} | denied; side-effect-free tools skip awaiting-approval
// and run immediately.
type Gate struct {
	registry *tools.Registry
	userID   uint
	chatID   string
	emit     func(Event)
	logger   services.Logger
}

func NewGate(
	registry *tools.Registry,
	userID uint,
	chatID string,
	emit func(Event),
	logger services.Logger,
) *Gate {
	return &Gate{
		registry: registry,
		userID:   userID,
		chatID:   chatID,
		emit:     emit,
		logger:   logger,
	}
}

// HandleProposal processes one engine tool-call event. It returns the
// tool part to attach to the assistant message and whether the turn
// must pause for user approval.
func (g *Gate) HandleProposal(ctx context.Context, call *ai.ToolCall) (domain.Part, bool) {
	part := domain.Part{
		Type:     domain.PartTypeTool,
		ToolName: call.Name,
		CallID:   call.ID,
		State:    domain.ToolStateProposed,
		Input:    call.Arguments,
	}
	g.emitToolState(&part)

	descriptor, err := g.registry.Get(call.Name)
	if err != nil {
		g.logger.Warn("engine proposed unknown tool", "tool", call.Name, "call_id", call.ID)
		part.State = domain.ToolStateDenied
		part.Output = errorOutput("unknown tool")
		g.emitToolState(&part)
		return part, false
	}

	if !descriptor.SideEffectFree {
		part.State = domain.ToolStateAwaitingApproval
		g.emitToolState(&part)
		return part, true
	}

	// Read-only tool: auto-approve and run inside the turn.
	part.State = domain.ToolStateApproved
	g.emitToolState(&part)
	g.execute(ctx, descriptor, &part)
	return part, false
}

// ResolveApproval handles a tool part the client answered. The part is
// mutated in place; its message will be committed as an update because
// its id already existed in the transcript.
func (g *Gate) ResolveApproval(ctx context.Context, part *domain.Part) {
	approved := part.Approval != nil && part.Approval.Approved
	if !approved {
		part.State = domain.ToolStateDenied
		part.Output = errorOutput("the user denied this action")
		g.emitToolState(part)
		return
	}

	part.State = domain.ToolStateApproved
	g.emitToolState(part)

	descriptor, err := g.registry.Get(part.ToolName)
	if err != nil {
		g.logger.Warn("approved tool no longer registered", "tool", part.ToolName, "call_id", part.CallID)
		part.State = domain.ToolStateDenied
		part.Output = errorOutput("unknown tool")
		g.emitToolState(part)
		return
	}

	g.execute(ctx, descriptor, part)
}

// execute runs an approved tool and writes the result back into the
// part. Execution failure is not fatal to the turn: the model sees the
// error output and continues with the remaining plan.
func (g *Gate) execute(ctx context.Context, descriptor tools.Descriptor, part *domain.Part) {
	part.State = domain.ToolStateExecuting
	g.emitToolState(part)

	output, err := descriptor.Execute(ctx, tools.Invocation{
		UserID: g.userID,
		ChatID: g.chatID,
		Input:  part.Input,
	})
	if err != nil {
		g.logger.Error("tool execution failed",
			"tool", part.ToolName, "call_id", part.CallID, "error", err)
		part.State = domain.ToolStateCompleted
		part.Output = errorOutput("tool execution failed")
		g.emitToolState(part)
		return
	}

	part.State = domain.ToolStateCompleted
	part.Output = output
	g.emitToolState(part)
}

func (g *Gate) emitToolState(part *domain.Part) {
	g.emit(Event{
		Type:     EventToolState,
		ToolName: part.ToolName,
		CallID:   part.CallID,
		State:    part.State,
		Input:    part.Input,
		Output:   part.Output,
	})
}

func errorOutput(msg string) json.RawMessage {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return out
}
