// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"io"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/calyra-app/calyra/internal/domain"
)

// OpenAIProvider drives any OpenAI-compatible gateway.
type OpenAIProvider struct {
	config *Config
	client *openai.Client
}

func NewOpenAIProvider(config *Config) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Stream runs one generation call and adapts the wire deltas into the
// engine event sequence. Tool-call argument fragments are accumulated
// per call and emitted as single tool-call events once the model is
// done proposing them.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    p.buildMessages(req),
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	}
	for _, t := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, classifyAPIError("streaming", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer stream.Close()

		acc := newToolCallAccumulator()
		finishReason := ""

		for {
			response, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					break
				}
				events <- Event{Type: EventError, Err: classifyAPIError("streaming", err)}
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]

			if choice.Delta.Content != "" {
				select {
				case events <- Event{Type: EventTextDelta, Delta: choice.Delta.Content}:
				case <-ctx.Done():
					events <- Event{Type: EventError, Err: NewProviderError("streaming", "generation cancelled", ctx.Err())}
					return
				}
			}

			for _, tc := range choice.Delta.ToolCalls {
				acc.add(tc)
			}

			if choice.FinishReason != "" {
				finishReason = string(choice.FinishReason)
			}
		}

		for _, call := range acc.calls() {
			events <- Event{Type: EventToolCall, Call: call}
		}
		events <- Event{Type: EventFinish, FinishReason: finishReason}
	}()

	return events, nil
}

// Complete is the non-streaming path, used by the title side-task.
func (p *OpenAIProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: p.config.Temperature,
		},
	)

	if err != nil {
		return "", classifyAPIError("completion", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{
			Type:      ErrTypeProvider,
			Operation: "completion",
			Message:   "empty completion response",
		}
	}

	return resp.Choices[0].Message.Content, nil
}

// buildMessages flattens the domain message context into the wire
// shape: assistant tool parts become tool_calls, their outputs become
// separate tool-role messages keyed by call id.
func (p *OpenAIProvider) buildMessages(req Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, p.buildUserMessage(&m))
		case domain.RoleAssistant:
			assistant := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.TextContent(),
			}
			var toolResults []openai.ChatCompletionMessage
			for _, part := range m.ToolParts() {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ToolCall{
					ID:   part.CallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      part.ToolName,
						Arguments: string(part.Input),
					},
				})
				if part.State == domain.ToolStateCompleted || part.State == domain.ToolStateDenied {
					toolResults = append(toolResults, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						ToolCallID: part.CallID,
						Content:    string(part.Output),
					})
				}
			}
			out = append(out, assistant)
			out = append(out, toolResults...)
		case domain.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.TextContent(),
			})
		case domain.RoleTool:
			for _, part := range m.ToolParts() {
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: part.CallID,
					Content:    string(part.Output),
				})
			}
		}
	}
	return out
}

func (p *OpenAIProvider) buildUserMessage(m *domain.Message) openai.ChatCompletionMessage {
	hasFile := false
	for _, part := range m.Parts {
		if part.Type == domain.PartTypeFile {
			hasFile = true
			break
		}
	}

	if !hasFile {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: m.TextContent(),
		}
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	for _, part := range m.Parts {
		switch part.Type {
		case domain.PartTypeText:
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		case domain.PartTypeFile:
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: part.URL},
			})
		}
	}
	return msg
}

// toolCallAccumulator reassembles streamed tool-call fragments. The
// wire interleaves argument chunks keyed by call index; the id and
// name arrive on the first fragment only.
type toolCallAccumulator struct {
	byIndex map[int]*partialCall
}

type partialCall struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*partialCall)}
}

func (a *toolCallAccumulator) add(tc openai.ToolCall) {
	index := 0
	if tc.Index != nil {
		index = *tc.Index
	}

	partial, ok := a.byIndex[index]
	if !ok {
		partial = &partialCall{index: index}
		a.byIndex[index] = partial
	}
	if tc.ID != "" {
		partial.id = tc.ID
	}
	if tc.Function.Name != "" {
		partial.name = tc.Function.Name
	}
	partial.args.WriteString(tc.Function.Arguments)
}

// calls returns the accumulated tool calls in index order.
func (a *toolCallAccumulator) calls() []*ToolCall {
	partials := make([]*partialCall, 0, len(a.byIndex))
	for _, p := range a.byIndex {
		partials = append(partials, p)
	}
	sort.Slice(partials, func(i, j int) bool { return partials[i].index < partials[j].index })

	out := make([]*ToolCall, 0, len(partials))
	for _, p := range partials {
		args := p.args.String()
		if args == "" {
			args = "{}"
		}
		out = append(out, &ToolCall{
			ID:        p.id,
			Name:      p.name,
			Arguments: []byte(args),
		})
	}
	return out
}
