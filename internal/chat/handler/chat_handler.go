// Package handler exposes the HTTP snapshot and fallback endpoints the chat
// client uses when the realtime channel is unavailable.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"roomly/internal/chat/service"
	"roomly/internal/common"
	"roomly/internal/config"
	"roomly/internal/dbmysql"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	chat     service.ChatService
	pageSize int
}

func NewChatHandler(chat service.ChatService, cnf *config.Config) *ChatHandler {
	pageSize := cnf.Chat.PageSize
	if pageSize <= 0 {
		pageSize = service.DefaultPageSize
	}
	return &ChatHandler{chat: chat, pageSize: pageSize}
}

type sendMessageRequest struct {
	ReceiverID  string              `json:"receiverId"`
	Content     string              `json:"content"`
	MessageType dbmysql.MessageType `json:"messageType,omitempty"`
	ListingID   *string             `json:"listingId,omitempty"`
}

// GetConversations returns the authenticated user's ordered conversation
// summaries. A user with no history gets an empty array, not an error.
func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conversations, err := h.chat.ListConversations(r.Context(), userID)
	if err != nil {
		log.Printf("failed to list conversations for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load conversations")
		return
	}

	writeJSON(w, http.StatusOK, conversations)
}

// GetMessages returns one oldest-first page of history with a partner and
// marks the partner's unread messages to the caller as read.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	partnerID := mux.Vars(r)["partnerID"]
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = h.pageSize
	}

	messages, err := h.chat.ListMessages(r.Context(), userID, partnerID, offset, limit)
	if err != nil {
		log.Printf("failed to list messages for %s with %s: %v", userID, partnerID, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// SendMessage is the fallback send path for clients not joined to the
// channel. It persists and returns the hydrated message without any live
// fan-out; the caller appends the response to its own state.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), service.SendMessageInput{
		SenderID:    userID,
		ReceiverID:  req.ReceiverID,
		Content:     req.Content,
		MessageType: req.MessageType,
		ListingID:   req.ListingID,
	})
	if err != nil {
		status := statusForSendError(err)
		if status == http.StatusInternalServerError {
			log.Printf("failed to send message from %s: %v", userID, err)
			writeError(w, status, "failed to send message")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func statusForSendError(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownReceiver):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSenderRequired),
		errors.Is(err, service.ErrReceiverRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, common.ErrEmptyContent),
		errors.Is(err, common.ErrContentTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
