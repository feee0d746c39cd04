// File: internal/services/turn/service.go
package turn

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/repository/chat"
	"github.com/calyra-app/calyra/internal/repository/stream"
	"github.com/calyra-app/calyra/internal/services"
	"github.com/calyra-app/calyra/internal/services/ai"
	"github.com/calyra-app/calyra/internal/services/tools"
)

const (
	titleTaskTimeout = 30 * time.Second
	maxTitleChars    = 80
)

// Service is the conversational turn orchestrator. One call to
// StartTurn handles one turn end to end: quota check, context
// assembly, the gated generation loop, publishing and background
// persistence. The response is gated only on the stream being
// constructed; everything slow happens behind it.
type Service struct {
	config       *Config
	assembler    *Assembler
	entitlements *EntitlementResolver
	engine       ai.Provider
	registry     *tools.Registry
	publisher    *Publisher
	sink         *Sink
	chatRepo     chat.ChatRepository
	streamRepo   stream.StreamRepository
	logger       services.Logger
}

func NewService(
	config *Config,
	assembler *Assembler,
	entitlements *EntitlementResolver,
	engine ai.Provider,
	registry *tools.Registry,
	publisher *Publisher,
	sink *Sink,
	chatRepo chat.ChatRepository,
	streamRepo stream.StreamRepository,
	logger services.Logger,
) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, NewBadRequestError("constructor", err.Error())
	}
	if assembler == nil || entitlements == nil || engine == nil || registry == nil ||
		publisher == nil || sink == nil || chatRepo == nil || streamRepo == nil {
		return nil, NewBadRequestError("constructor", "all turn service dependencies are required")
	}
	if logger == nil {
		logger = &services.NoOpLogger{}
	}

	return &Service{
		config:       config,
		assembler:    assembler,
		entitlements: entitlements,
		engine:       engine,
		registry:     registry,
		publisher:    publisher,
		sink:         sink,
		chatRepo:     chatRepo,
		streamRepo:   streamRepo,
		logger:       logger,
	}, nil
}

// StartTurn runs one turn. The returned stream carries the wire frames
// for the caller to drain; generation runs behind it and is cancelled
// if ctx ends, while persistence tasks already launched complete on
// their own contexts.
func (s *Service) StartTurn(ctx context.Context, userID uint, userType string, req *Request) (*Stream, error) {
	if userID == 0 {
		return nil, NewUnauthorizedError("turn")
	}

	if err := s.entitlements.Check(ctx, userID, userType); err != nil {
		return nil, err
	}

	assembled, err := s.assembler.Assemble(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	st := s.publisher.Open()

	// Register the handle before generation starts so a reattaching
	// client can find the stream. Failure is degraded persistence,
	// not a turn failure.
	if err := s.streamRepo.Create(ctx, &domain.StreamHandle{ID: st.ID, ChatID: req.ChatID}); err != nil {
		s.logger.Error("failed to register stream handle",
			"chat_id", req.ChatID, "stream_id", st.ID, "error", err)
	}

	if assembled.NewChat {
		go s.generateTitle(req.ChatID, assembled.FirstUserText, st)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.config.TurnTimeout)
	go func() {
		defer cancel()
		s.run(genCtx, userID, assembled, req, st)
	}()

	return st, nil
}

// Resume attaches a consumer to the most recent stream of a chat.
func (s *Service) Resume(ctx context.Context, userID uint, chatID string) (<-chan Event, error) {
	chatRecord, err := s.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		return nil, NewNotFoundError("resume", "chat not found")
	}
	if chatRecord.UserID != userID {
		return nil, NewForbiddenError("resume")
	}

	handle, err := s.streamRepo.FindLatestByChatID(ctx, chatID)
	if err != nil {
		return nil, NewNotFoundError("resume", "no stream to resume")
	}

	events, err := s.publisher.Attach(ctx, handle.ID)
	if err != nil {
		return nil, NewNotFoundError("resume", "stream is no longer available")
	}
	return events, nil
}

// run drives the generation loop for one turn and closes the stream
// with exactly one terminal frame.
func (s *Service) run(ctx context.Context, userID uint, assembled *AssembledTurn, req *Request, st *Stream) {
	defer st.Close()

	gate := NewGate(s.registry, userID, req.ChatID, st.Emit, s.logger)
	msgs := assembled.Messages
	var finalized []domain.Message

	// Continuation: resolve the approval decisions the transcript
	// carries before generating. An approved tool response in the
	// last message is what lets the turn resume without new user
	// content.
	if assembled.Flow == FlowContinuation {
		last := &msgs[len(msgs)-1]
		patched := false
		for _, part := range last.ToolParts() {
			if part.State == domain.ToolStateApprovalResponse {
				gate.ResolveApproval(ctx, part)
				patched = true
			}
		}
		if patched {
			finalized = append(finalized, *last)
		}
	}

	model := req.Model
	if model == "" {
		model = s.config.DefaultModel
	}

	for step := 0; step < s.config.MaxSteps; step++ {
		events, err := s.engine.Stream(ctx, ai.Request{
			Model:    model,
			System:   s.config.SystemPrompt,
			Messages: msgs,
			Tools:    s.registry.Descriptors(),
		})
		if err != nil {
			s.emitTerminalError(st, err)
			s.commit(req.ChatID, assembled.ExistingIDs, finalized)
			return
		}

		assistant := domain.Message{
			ID:        uuid.NewString(),
			ChatID:    req.ChatID,
			Role:      domain.RoleAssistant,
			CreatedAt: time.Now(),
		}
		awaiting := false
		executed := false

		for ev := range events {
			switch ev.Type {
			case ai.EventTextDelta:
				appendTextDelta(&assistant, ev.Delta)
				st.Emit(Event{Type: EventTextDelta, MessageID: assistant.ID, Delta: ev.Delta})
			case ai.EventToolCall:
				part, pending := gate.HandleProposal(ctx, ev.Call)
				assistant.Parts = append(assistant.Parts, part)
				if pending {
					awaiting = true
				} else {
					executed = true
				}
			case ai.EventError:
				s.emitTerminalError(st, ev.Err)
				for range events {
					// Drain so the engine goroutine can exit.
				}
				s.commit(req.ChatID, assembled.ExistingIDs, finalized)
				return
			case ai.EventFinish:
			}
		}

		if len(assistant.Parts) > 0 {
			finalized = append(finalized, assistant)
			msgs = append(msgs, assistant)
		}

		// Pause for approval, or stop when the model produced a plain
		// answer; only executed tools feed another step.
		if awaiting || !executed {
			break
		}
	}

	st.Emit(Event{Type: EventFinish})
	s.commit(req.ChatID, assembled.ExistingIDs, finalized)
	s.logger.Info("turn completed", "chat_id", req.ChatID, "messages", len(finalized))
}

// commit hands the finalized set to the sink off the request path.
func (s *Service) commit(chatID string, existingIDs map[string]bool, finalized []domain.Message) {
	if len(finalized) == 0 {
		return
	}
	snapshot := make([]domain.Message, len(finalized))
	copy(snapshot, finalized)
	go s.sink.Commit(chatID, existingIDs, snapshot)
}

// emitTerminalError closes the visible stream with one categorized
// error frame. The raw upstream error is logged, never streamed.
func (s *Service) emitTerminalError(st *Stream, err error) {
	s.logger.Error("turn failed", "stream_id", st.ID, "error", err)

	code := CodeOffline
	msg := MsgOffline
	if ai.IsGatewayError(err) {
		code = CodeActivateGateway
		msg = MsgActivateGateway
	}
	st.Emit(Event{Type: EventError, Code: code, Message: msg})
}

// generateTitle is the asynchronous title side-task for new chats. Its
// failure is logged and otherwise ignored; the placeholder title just
// stays.
func (s *Service) generateTitle(chatID, firstUserText string, st *Stream) {
	if strings.TrimSpace(firstUserText) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), titleTaskTimeout)
	defer cancel()

	prompt := "Summarize the following chat opener as a title of at most " +
		"five words. Reply with the title only, no quotes.\n\n" + firstUserText
	title, err := s.engine.Complete(ctx, s.config.TitleModel, prompt)
	if err != nil {
		s.logger.Error("title generation failed", "chat_id", chatID, "error", err)
		return
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return
	}
	if len(title) > maxTitleChars {
		title = title[:maxTitleChars]
	}

	if err := s.chatRepo.UpdateTitle(ctx, chatID, title); err != nil {
		s.logger.Error("failed to persist generated title", "chat_id", chatID, "error", err)
	}

	// Merge into the stream as metadata if the turn is still open.
	st.Emit(Event{Type: EventTitle, Title: title})
}

func appendTextDelta(m *domain.Message, delta string) {
	if n := len(m.Parts); n > 0 && m.Parts[n-1].Type == domain.PartTypeText {
		m.Parts[n-1].Text += delta
		return
	}
	m.Parts = append(m.Parts, domain.Part{Type: domain.PartTypeText, Text: delta})
}
