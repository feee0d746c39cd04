// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/middleware"
	"github.com/calyra-app/calyra/internal/repository/chat"
	"github.com/calyra-app/calyra/internal/repository/message"
	"github.com/calyra-app/calyra/internal/services/turn"
)

type ChatHandler struct {
	TurnService *turn.Service
	ChatRepo    chat.ChatRepository
	MessageRepo message.MessageRepository
}

func NewChatHandler(ts *turn.Service, cr chat.ChatRepository, mr message.MessageRepository) *ChatHandler {
	return &ChatHandler{
		TurnService: ts,
		ChatRepo:    cr,
		MessageRepo: mr,
	}
}

// HandleTurn starts one conversational turn and streams its frames
// back as server-sent events.
func (h *ChatHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uint)
	if !ok {
		writeError(w, "unauthorized", "Authentication required.", http.StatusUnauthorized)
		return
	}
	userType, _ := r.Context().Value(middleware.UserTypeKey).(string)

	req, err := turn.ValidateRequest(r.Body)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	stream, err := h.TurnService.StartTurn(r.Context(), userID, userType, req)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	streamEvents(w, r, stream.Events(r.Context()))
}

// ResumeStream reattaches the client to the chat's most recent stream.
func (h *ChatHandler) ResumeStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uint)
	if !ok {
		writeError(w, "unauthorized", "Authentication required.", http.StatusUnauthorized)
		return
	}

	chatID := mux.Vars(r)["id"]
	events, err := h.TurnService.Resume(r.Context(), userID, chatID)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	streamEvents(w, r, events)
}

// GetUserChats retrieves all chats owned by the caller.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uint)
	if !ok {
		writeError(w, "unauthorized", "Authentication required.", http.StatusUnauthorized)
		return
	}

	chats, err := h.ChatRepo.FindByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, string(turn.CodeUpstream), "Could not retrieve chats.", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// GetChatMessages retrieves the stored transcript of one chat.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uint)
	if !ok {
		writeError(w, "unauthorized", "Authentication required.", http.StatusUnauthorized)
		return
	}

	chatID := mux.Vars(r)["id"]
	chatRecord, err := h.ChatRepo.FindByID(r.Context(), chatID)
	if err != nil {
		writeError(w, "not_found", "Chat not found.", http.StatusNotFound)
		return
	}
	if chatRecord.UserID != userID && chatRecord.Visibility != domain.VisibilityPublic {
		writeError(w, "forbidden", "This chat belongs to another user.", http.StatusForbidden)
		return
	}

	messages, err := h.MessageRepo.FindByChatID(r.Context(), chatID)
	if err != nil {
		writeError(w, string(turn.CodeUpstream), "Could not retrieve messages.", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// DeleteChat removes a chat the caller owns and echoes the deleted
// record.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(uint)
	if !ok {
		writeError(w, "unauthorized", "Authentication required.", http.StatusUnauthorized)
		return
	}

	chatID := r.URL.Query().Get("id")
	if chatID == "" {
		writeError(w, "bad_request", "Chat id is required.", http.StatusBadRequest)
		return
	}

	deleted, err := h.ChatRepo.Delete(r.Context(), chatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrChatNotFound):
			writeError(w, "not_found", "Chat not found.", http.StatusNotFound)
		case errors.Is(err, chat.ErrUnauthorizedAccess):
			writeError(w, "forbidden", "This chat belongs to another user.", http.StatusForbidden)
		default:
			writeError(w, string(turn.CodeUpstream), "Could not delete chat.", http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, deleted)
}

// streamEvents writes the event channel to the response as SSE frames.
func streamEvents(w http.ResponseWriter, r *http.Request, events <-chan turn.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "misconfigured", "Streaming is not supported.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending categorized JSON error responses.
func writeError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

// writeTurnError maps a turn service error onto the wire format.
func writeTurnError(w http.ResponseWriter, err error) {
	var turnErr *turn.TurnError
	if errors.As(err, &turnErr) {
		writeError(w, string(turnErr.Code), turnErr.Message, turnErr.HTTPStatus())
		return
	}
	writeError(w, string(turn.CodeMisconfigured), "Could not process the request.", http.StatusInternalServerError)
}
