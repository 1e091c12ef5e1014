package skill

import (
	"context"
	"fmt"
	"time"

	"skillswap/internal/api"
)

// Skill types. A user either offers a skill or wants to learn it.
const (
	TypeTeaching = "teaching"
	TypeLearning = "learning"
)

type Skill struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Create is the skill creation payload.
type Create struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Update carries the PUT-able fields. Nil means "leave unchanged".
type Update struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ListOptions narrow list and search calls.
type ListOptions struct {
	SkillType string
	Limit     int
	Offset    int
}

func (o ListOptions) query() string {
	limit := o.Limit
	if limit <= 0 {
		limit = 100
	}
	return api.Query(limit, o.Offset, [2]string{"skill_type", o.SkillType})
}

// Service wraps the /v1/skills endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Create(ctx context.Context, in Create) (*Skill, error) {
	var sk Skill
	if err := s.client.Post(ctx, "/v1/skills", in, &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

func (s *Service) Get(ctx context.Context, id int) (*Skill, error) {
	var sk Skill
	if err := s.client.Get(ctx, fmt.Sprintf("/v1/skills/%d", id), &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

func (s *Service) Update(ctx context.Context, id int, upd Update) (*Skill, error) {
	var sk Skill
	if err := s.client.Put(ctx, fmt.Sprintf("/v1/skills/%d", id), upd, &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("/v1/skills/%d", id))
}

// BulkDelete removes several skills in one call.
func (s *Service) BulkDelete(ctx context.Context, ids []int) error {
	return s.client.Post(ctx, "/v1/skills/bulk-delete", map[string][]int{"skill_ids": ids}, nil)
}

// List returns all skills, optionally filtered by type.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Skill, int, error) {
	var envelope struct {
		Items []Skill `json:"items"`
		Total int     `json:"total"`
	}
	if err := s.client.Get(ctx, "/v1/skills"+opts.query(), &envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Items, envelope.Total, nil
}

// ListByUser returns one user's skills.
func (s *Service) ListByUser(ctx context.Context, userID int, opts ListOptions) ([]Skill, int, error) {
	var envelope struct {
		Items []Skill `json:"items"`
		Total int     `json:"total"`
	}
	path := fmt.Sprintf("/v1/skills/users/%d%s", userID, opts.query())
	if err := s.client.Get(ctx, path, &envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Items, envelope.Total, nil
}

// Search finds skills by name or description fragment.
func (s *Service) Search(ctx context.Context, query string, opts ListOptions) ([]Skill, int, error) {
	var envelope struct {
		Items []Skill `json:"items"`
		Total int     `json:"total"`
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	path := "/v1/skills/search" + api.Query(limit, opts.Offset,
		[2]string{"q", query}, [2]string{"skill_type", opts.SkillType})
	if err := s.client.Get(ctx, path, &envelope); err != nil {
		return nil, 0, err
	}
	return envelope.Items, envelope.Total, nil
}
