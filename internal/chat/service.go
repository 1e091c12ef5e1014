package chat

import (
	"context"
	"fmt"
	"net/url"

	"skillswap/internal/api"
)

// Service wraps the /v1/chats REST endpoints. The live channel is handled
// separately by Session.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Create finds or creates the chat between two users. The backend is
// idempotent per unordered participant pair.
func (s *Service) Create(ctx context.Context, user1ID, user2ID int) (*Chat, error) {
	var c Chat
	body := map[string]int{"user1_id": user1ID, "user2_id": user2ID}
	if err := s.client.Post(ctx, "/v1/chats", body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns one chat descriptor.
func (s *Service) Get(ctx context.Context, chatID int) (*Chat, error) {
	var c Chat
	if err := s.client.Get(ctx, fmt.Sprintf("/v1/chats/%d", chatID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the caller's chats.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Chat, int, error) {
	if limit <= 0 {
		limit = 100
	}
	var envelope struct {
		Items []Chat `json:"items"`
		Total int    `json:"total"`
	}
	if err := s.client.Get(ctx, "/v1/chats"+api.Query(limit, offset), &envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Items, envelope.Total, nil
}

// ListWithMessages returns the caller's chats with last-message previews.
func (s *Service) ListWithMessages(ctx context.Context, limit, offset int) ([]ListItem, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var envelope struct {
		Items []ListItem `json:"items"`
		Total int        `json:"total"`
	}
	if err := s.client.Get(ctx, "/v1/chats/list/with-messages"+api.Query(limit, offset), &envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Items, envelope.Total, nil
}

// History returns one page of messages in ascending chronological order.
// The wire order is newest-first; the page is reversed before it is exposed,
// so callers only ever see ascending timestamps.
func (s *Service) History(ctx context.Context, chatID, limit, offset int) ([]Message, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var envelope struct {
		Items []Message `json:"items"`
		Total int       `json:"total"`
	}
	path := fmt.Sprintf("/v1/chats/%d/messages%s", chatID, api.Query(limit, offset))
	if err := s.client.Get(ctx, path, &envelope); err != nil {
		return nil, 0, err
	}

	items := envelope.Items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, envelope.Total, nil
}

// PostMessage sends a message over REST. The normal path is Session.Send;
// this is the fallback when no live channel is wanted.
func (s *Service) PostMessage(ctx context.Context, chatID int, text string) (*Message, error) {
	var msg Message
	path := fmt.Sprintf("/v1/chats/%d/messages", chatID)
	if err := s.client.Post(ctx, path, map[string]string{"text": text}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// channelURL builds the live channel endpoint for one chat. The bearer
// token rides in the query string, matching the backend contract.
func (s *Service) channelURL(chatID int, token string) string {
	return s.client.WebSocketURL(fmt.Sprintf("/v1/chats/ws/chat/%d?token=%s", chatID, url.QueryEscape(token)))
}
