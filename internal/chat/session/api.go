package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"roomly/internal/chat/service"
	"roomly/internal/dbmysql"
)

// SendRequest carries one fallback send.
type SendRequest struct {
	ReceiverID  string              `json:"receiverId"`
	Content     string              `json:"content"`
	MessageType dbmysql.MessageType `json:"messageType,omitempty"`
	ListingID   *string             `json:"listingId,omitempty"`
}

// API is the HTTP snapshot and fallback surface the controller consumes:
// the initial conversation fetch, history pagination and the plain
// request/response send used when the channel is down.
type API interface {
	Conversations(ctx context.Context) ([]service.ConversationSummary, error)
	Messages(ctx context.Context, partnerID string, offset, limit int) ([]*dbmysql.Message, error)
	Send(ctx context.Context, req SendRequest) (*dbmysql.Message, error)
}

// HTTPClient implements API against the chat-svc REST endpoints.
type HTTPClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Token: token, Client: http.DefaultClient}
}

func (c *HTTPClient) Conversations(ctx context.Context) ([]service.ConversationSummary, error) {
	var out []service.ConversationSummary
	if err := c.get(ctx, "/api/v1/chat/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Messages(ctx context.Context, partnerID string, offset, limit int) ([]*dbmysql.Message, error) {
	path := "/api/v1/chat/messages/" + partnerID +
		"?offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(limit)
	var out []*dbmysql.Message
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Send(ctx context.Context, sendReq SendRequest) (*dbmysql.Message, error) {
	body, err := json.Marshal(sendReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/chat/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("send failed: status %d", resp.StatusCode)
	}

	var msg dbmysql.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s failed: status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
