package call

import (
	"context"
	"fmt"
	"time"

	"skillswap/internal/api"
)

// Call statuses, driven entirely by the backend.
const (
	StatusInitiated = "initiated"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusEnded     = "ended"
)

// Call is a video-call negotiation keyed to a chat. The actual media
// transport belongs to the video provider; the client only moves the
// lifecycle along and hands the room id to the embed.
type Call struct {
	ID          int       `json:"id"`
	ChatID      int       `json:"chat_id"`
	CallerID    int       `json:"caller_id"`
	SkillType   string    `json:"skill_type"`
	Status      string    `json:"status"`
	JitsiRoomID string    `json:"jitsi_room_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service wraps the /v1/calls endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Initiate starts a call in a chat. skillType defaults to "teaching".
func (s *Service) Initiate(ctx context.Context, chatID int, skillType string) (*Call, error) {
	if skillType == "" {
		skillType = "teaching"
	}
	body := map[string]any{"chat_id": chatID, "skill_type": skillType}
	var c Call
	if err := s.client.Post(ctx, "/v1/calls/initiate", body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Accept(ctx context.Context, callID int) (*Call, error) {
	return s.transition(ctx, callID, "accept")
}

func (s *Service) Reject(ctx context.Context, callID int) (*Call, error) {
	return s.transition(ctx, callID, "reject")
}

func (s *Service) End(ctx context.Context, callID int) (*Call, error) {
	return s.transition(ctx, callID, "end")
}

func (s *Service) transition(ctx context.Context, callID int, action string) (*Call, error) {
	var c Call
	path := fmt.Sprintf("/v1/calls/%d/%s", callID, action)
	if err := s.client.Post(ctx, path, struct{}{}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns one call descriptor.
func (s *Service) Get(ctx context.Context, callID int) (*Call, error) {
	var c Call
	if err := s.client.Get(ctx, fmt.Sprintf("/v1/calls/%d", callID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Active lists the caller's calls that have not ended yet.
func (s *Service) Active(ctx context.Context) ([]Call, int, error) {
	var envelope struct {
		Items []Call `json:"items"`
		Total int    `json:"total"`
	}
	if err := s.client.Get(ctx, "/v1/calls/active", &envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Items, envelope.Total, nil
}
