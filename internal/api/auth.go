package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/silvercare/companion/pkg/model"
)

// Credentials are the login inputs.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmergencyContact is required when registering an elderly user.
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// ElderlySignup is the registration payload for an elderly user.
type ElderlySignup struct {
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Password         string           `json:"password"`
	Age              int              `json:"age"`
	Address          string           `json:"address"`
	CaretakerID      string           `json:"caretakerId"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
}

// CaretakerSignup is the registration payload for a caretaker.
type CaretakerSignup struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Experience int    `json:"experience"`
}

// wireUser is the backend's user shape; `role` and `_id` are mapped to the
// client-side names.
type wireUser struct {
	ID    string         `json:"_id"`
	Email string         `json:"email"`
	Name  string         `json:"name"`
	Role  model.UserType `json:"role"`
}

type authData struct {
	User  wireUser `json:"user"`
	Token string   `json:"token"`
}

func (d *authData) toSession() (*model.Session, error) {
	if d.User.ID == "" || d.Token == "" {
		return nil, fmt.Errorf("invalid response format")
	}
	user := &model.User{
		ID:       d.User.ID,
		Email:    d.User.Email,
		Name:     d.User.Name,
		UserType: d.User.Role,
	}
	return &model.Session{
		UserID:    user.ID,
		UserType:  user.UserType,
		AuthToken: d.Token,
		User:      user,
	}, nil
}

// Login authenticates with email and password and returns the session to
// persist.
func (c *Client) Login(ctx context.Context, creds Credentials) (*model.Session, error) {
	var data authData
	if err := c.Post(ctx, "/auth/login", creds, &data); err != nil {
		return nil, err
	}
	return data.toSession()
}

// RegisterElderly creates an elderly account and returns the session to
// persist.
func (c *Client) RegisterElderly(ctx context.Context, signup ElderlySignup) (*model.Session, error) {
	var data authData
	if err := c.Post(ctx, "/auth/register-elderly", signup, &data); err != nil {
		return nil, err
	}
	return data.toSession()
}

// RegisterCaretaker creates a caretaker account and returns the session to
// persist.
func (c *Client) RegisterCaretaker(ctx context.Context, signup CaretakerSignup) (*model.Session, error) {
	var data authData
	if err := c.Post(ctx, "/auth/register-caretaker", signup, &data); err != nil {
		return nil, err
	}
	return data.toSession()
}

// VerifyToken checks the stored token against the backend. Only a successful
// response means the token is still valid; application-level failures mean
// invalid, and transport failures propagate so the caller can retry.
func (c *Client) VerifyToken(ctx context.Context) (bool, error) {
	err := c.Get(ctx, "/auth/verify", nil)
	if err == nil {
		return true, nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindApplication {
		return false, nil
	}
	return false, err
}
