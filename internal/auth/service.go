package auth

import (
	"context"

	"skillswap/internal/api"
)

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the token pair plus the identity the backend resolved.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ID           int    `json:"id"`
	Username     string `json:"username"`
}

// Service drives the auth endpoints and keeps the credential store in sync
// with their results.
type Service struct {
	client *api.Client
	creds  *Credentials
}

func NewService(client *api.Client, creds *Credentials) *Service {
	return &Service{client: client, creds: creds}
}

// Register creates a new account. It does not log in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	return s.client.Post(ctx, "/v1/auth/register", req, nil)
}

// Login authenticates and stores the returned token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := s.client.Post(ctx, "/v1/auth/login", LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	s.creds.Set(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

// Logout drops the local tokens. The backend keeps no session state to tear down.
func (s *Service) Logout() {
	s.creds.Clear()
}

// Credentials exposes the underlying store, e.g. for the live channel which
// needs the raw token as a query parameter.
func (s *Service) Credentials() *Credentials {
	return s.creds
}
