// File: internal/services/turn/fakes_test.go
package turn

import (
	"context"
	"sync"
	"time"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/repository/chat"
	"github.com/calyra-app/calyra/internal/repository/message"
	"github.com/calyra-app/calyra/internal/services"
	"github.com/calyra-app/calyra/internal/services/ai"
)

type fakeChatRepo struct {
	mu        sync.Mutex
	chats     map[string]*domain.Chat
	createErr error
	touched   []string
	titles    map[string]string
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:  make(map[string]*domain.Chat),
		titles: make(map[string]string),
	}
}

func (r *fakeChatRepo) Create(ctx context.Context, c *domain.Chat) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	stored := *c
	r.chats[c.ID] = &stored
	return &stored, nil
}

func (r *fakeChatRepo) FindByID(ctx context.Context, id string) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, chat.ErrChatNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeChatRepo) FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Chat
	for _, c := range r.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) Delete(ctx context.Context, chatID string, userID uint) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return nil, chat.ErrChatNotFound
	}
	if c.UserID != userID {
		return nil, chat.ErrUnauthorizedAccess
	}
	delete(r.chats, chatID)
	return c, nil
}

func (r *fakeChatRepo) UpdateTitle(ctx context.Context, chatID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles[chatID] = title
	if c, ok := r.chats[chatID]; ok {
		c.Title = title
	}
	return nil
}

func (r *fakeChatRepo) TouchUpdatedAt(ctx context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, chatID)
	return nil
}

var _ chat.ChatRepository = (*fakeChatRepo)(nil)

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []domain.Message
	createErr error
	findErr   error
	count     int64
	countErr  error
	updated   map[string][]domain.Part
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{updated: make(map[string][]domain.Part)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.messages = append(r.messages, *m)
	return m, nil
}

func (r *fakeMessageRepo) CreateBatch(ctx context.Context, msgs []domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.messages = append(r.messages, msgs...)
	return nil
}

func (r *fakeMessageRepo) FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []domain.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) UpdateParts(ctx context.Context, messageID string, parts []domain.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated[messageID] = parts
	for i := range r.messages {
		if r.messages[i].ID == messageID {
			r.messages[i].Parts = parts
		}
	}
	return nil
}

func (r *fakeMessageRepo) CountUserMessagesSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count, r.countErr
}

func (r *fakeMessageRepo) stored() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

var _ message.MessageRepository = (*fakeMessageRepo)(nil)

type fakeStreamRepo struct {
	mu      sync.Mutex
	handles []domain.StreamHandle
}

func (r *fakeStreamRepo) Create(ctx context.Context, handle *domain.StreamHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, *handle)
	return nil
}

func (r *fakeStreamRepo) FindByChatID(ctx context.Context, chatID string) ([]domain.StreamHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StreamHandle
	for _, h := range r.handles {
		if h.ChatID == chatID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeStreamRepo) FindLatestByChatID(ctx context.Context, chatID string) (*domain.StreamHandle, error) {
	handles, _ := r.FindByChatID(ctx, chatID)
	if len(handles) == 0 {
		return nil, ErrStreamGone
	}
	latest := handles[len(handles)-1]
	return &latest, nil
}

// fakeEngine plays back scripted event sequences, one per Stream call.
type fakeEngine struct {
	mu        sync.Mutex
	scripts   [][]ai.Event
	calls     int
	streamErr error
	title     string
	titleErr  error
	requests  []ai.Request
}

func (e *fakeEngine) Stream(ctx context.Context, req ai.Request) (<-chan ai.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamErr != nil {
		return nil, e.streamErr
	}
	e.requests = append(e.requests, req)

	var script []ai.Event
	if e.calls < len(e.scripts) {
		script = e.scripts[e.calls]
	} else {
		script = []ai.Event{{Type: ai.EventFinish}}
	}
	e.calls++

	out := make(chan ai.Event, len(script))
	for _, ev := range script {
		out <- ev
	}
	close(out)
	return out, nil
}

func (e *fakeEngine) Complete(ctx context.Context, model, prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.titleErr != nil {
		return "", e.titleErr
	}
	if e.title == "" {
		return "Test Title", nil
	}
	return e.title, nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *fakeEngine) capturedRequests() []ai.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ai.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

var _ ai.Provider = (*fakeEngine)(nil)

func testLogger() services.Logger {
	return &services.NoOpLogger{}
}
