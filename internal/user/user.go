package user

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"skillswap/internal/api"
)

// User is the profile shape shared by every endpoint that embeds a user.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Update carries the PATCH-able profile fields. Nil means "leave unchanged".
type Update struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Service wraps the /v1/users endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context) (*User, error) {
	var u User
	if err := s.client.Get(ctx, "/v1/users/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe patches the authenticated user's profile.
func (s *Service) UpdateMe(ctx context.Context, upd Update) (*User, error) {
	var u User
	if err := s.client.Patch(ctx, "/v1/users/me", upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Get returns another user's public profile.
func (s *Service) Get(ctx context.Context, id int) (*User, error) {
	var u User
	if err := s.client.Get(ctx, fmt.Sprintf("/v1/users/%d", id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Search finds users by username fragment.
func (s *Service) Search(ctx context.Context, query string) ([]User, error) {
	var users []User
	path := "/v1/users/search?q=" + url.QueryEscape(query)
	if err := s.client.Get(ctx, path, &users); err != nil {
		return nil, err
	}
	return users, nil
}
