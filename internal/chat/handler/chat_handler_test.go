package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roomly/internal/chat/service"
	"roomly/internal/chat/service/mocks"
	"roomly/internal/common"
	"roomly/internal/config"
	"roomly/internal/dbmysql"
)

func setupHandler(t *testing.T) (*mocks.MockChatService, *mux.Router) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockChatService(ctrl)
	h := NewChatHandler(svc, &config.Config{})

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/chat/conversations", h.GetConversations).Methods("GET")
	router.HandleFunc("/api/v1/chat/messages/{partnerID}", h.GetMessages).Methods("GET")
	router.HandleFunc("/api/v1/chat/messages", h.SendMessage).Methods("POST")
	return svc, router
}

func authed(req *http.Request, userID string) *http.Request {
	return req.WithContext(common.WithUserID(req.Context(), userID))
}

func TestGetConversations(t *testing.T) {
	t.Run("requires identity", func(t *testing.T) {
		_, router := setupHandler(t)

		req := httptest.NewRequest("GET", "/api/v1/chat/conversations", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("returns ordered summaries", func(t *testing.T) {
		svc, router := setupHandler(t)

		svc.EXPECT().
			ListConversations(gomock.Any(), "u1").
			Return([]service.ConversationSummary{
				{
					ConversationID: "u1:u2",
					PartnerID:      "u2",
					LastMessage:    &dbmysql.Message{ID: 5, Content: "hi"},
					LastMessageAt:  time.Now(),
					UnreadCount:    1,
				},
			}, nil)

		req := authed(httptest.NewRequest("GET", "/api/v1/chat/conversations", nil), "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got []service.ConversationSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "u2", got[0].PartnerID)
		assert.Equal(t, int64(1), got[0].UnreadCount)
	})

	t.Run("empty history yields empty array", func(t *testing.T) {
		svc, router := setupHandler(t)

		svc.EXPECT().
			ListConversations(gomock.Any(), "u1").
			Return([]service.ConversationSummary{}, nil)

		req := authed(httptest.NewRequest("GET", "/api/v1/chat/conversations", nil), "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		svc, router := setupHandler(t)

		svc.EXPECT().
			ListConversations(gomock.Any(), "u1").
			Return(nil, assert.AnError)

		req := authed(httptest.NewRequest("GET", "/api/v1/chat/conversations", nil), "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetMessages(t *testing.T) {
	t.Run("passes pagination params through", func(t *testing.T) {
		svc, router := setupHandler(t)

		svc.EXPECT().
			ListMessages(gomock.Any(), "u1", "u2", 20, 10).
			Return([]*dbmysql.Message{{ID: 1, Content: "hi"}}, nil)

		req := authed(httptest.NewRequest("GET", "/api/v1/chat/messages/u2?offset=20&limit=10", nil), "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got []*dbmysql.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "hi", got[0].Content)
	})

	t.Run("missing params fall back to the configured page size", func(t *testing.T) {
		svc, router := setupHandler(t)

		svc.EXPECT().
			ListMessages(gomock.Any(), "u1", "u2", 0, service.DefaultPageSize).
			Return([]*dbmysql.Message{}, nil)

		req := authed(httptest.NewRequest("GET", "/api/v1/chat/messages/u2", nil), "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSendMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockSetup  func(svc *mocks.MockChatService)
		wantStatus int
	}{
		{
			name: "successful fallback send",
			body: `{"receiverId":"u2","content":"hi","messageType":"TEXT"}`,
			mockSetup: func(svc *mocks.MockChatService) {
				svc.EXPECT().
					SendMessage(gomock.Any(), service.SendMessageInput{
						SenderID:    "u1",
						ReceiverID:  "u2",
						Content:     "hi",
						MessageType: dbmysql.MessageTypeText,
					}).
					Return(&dbmysql.Message{ID: 1, SenderID: "u1", ReceiverID: "u2", Content: "hi"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "unknown receiver",
			body: `{"receiverId":"ghost","content":"hi"}`,
			mockSetup: func(svc *mocks.MockChatService) {
				svc.EXPECT().
					SendMessage(gomock.Any(), gomock.Any()).
					Return(nil, service.ErrUnknownReceiver)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "validation failure",
			body: `{"receiverId":"u2","content":""}`,
			mockSetup: func(svc *mocks.MockChatService) {
				svc.EXPECT().
					SendMessage(gomock.Any(), gomock.Any()).
					Return(nil, service.ErrContentRequired)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			body: `{"receiverId":"u2","content":"hi"}`,
			mockSetup: func(svc *mocks.MockChatService) {
				svc.EXPECT().
					SendMessage(gomock.Any(), gomock.Any()).
					Return(nil, assert.AnError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed body",
			body:       `{"receiverId":`,
			mockSetup:  func(*mocks.MockChatService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := setupHandler(t)
			tt.mockSetup(svc)

			req := authed(httptest.NewRequest("POST", "/api/v1/chat/messages",
				bytes.NewReader([]byte(tt.body))), "u1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
