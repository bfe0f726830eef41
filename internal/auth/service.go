// Package auth signs the operator in and out against the backend and
// guards the admin surfaces on the presence of a stored token.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/logging"
	"github.com/erazemk/katalog/internal/model"
)

// Display messages.
const (
	MsgMissingCredentials = "Please provide both email and password."
	MsgAuthUnreachable    = "Cannot reach authentication server."
	MsgInvalidCredentials = "Invalid email or password."
	MsgUnexpected         = "An unexpected error occurred."
	MsgNoToken            = "Login successful but no token returned."
	MsgRegisterFailed     = "Registration failed."
)

// ErrNotSignedIn is returned when an operation needs a stored token.
var ErrNotSignedIn = errors.New("not signed in")

// Error is a sign-in or sign-up failure carrying its display message.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the display message for an error from this package.
func Message(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return client.Message(err)
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Service talks to the backend's user endpoints.
type Service struct {
	Client *client.Client
	Tokens TokenStore
	Logger *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return logging.Discard()
	}
	return s.Logger
}

// Login exchanges credentials for a token and stores it.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &Error{Message: MsgMissingCredentials}
	}

	body, err := s.Client.SendJSON(ctx, http.MethodPost, "users/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		s.logger().Error("sign-in failed", "email", email, "error", err)
		return &Error{Message: loginMessage(err), Err: err}
	}

	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = MsgNoToken
		}
		return &Error{Message: msg}
	}

	if err := s.Tokens.SetToken(ctx, token); err != nil {
		return &Error{Message: MsgUnexpected, Err: err}
	}
	s.logger().Info("signed in", "email", email)
	return nil
}

func loginMessage(err error) string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return MsgUnexpected
	}
	if apiErr.Status == 0 {
		return MsgAuthUnreachable
	}
	if msg := apiErr.ServerMessage(); msg != "" {
		return msg
	}
	if apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized {
		return MsgInvalidCredentials
	}
	return MsgUnexpected
}

// Register creates a backend account. The profile picture is optional.
func (s *Service) Register(ctx context.Context, reg model.Registration, picture *client.File) error {
	if err := reg.Validate(); err != nil {
		return &Error{Message: err.Error(), Err: err}
	}

	fields := url.Values{
		"email":            {reg.Email},
		"password":         {reg.Password},
		"confirm_password": {reg.ConfirmPassword},
		"first_name":       {reg.FirstName},
		"last_name":        {reg.LastName},
		"phone":            {reg.Phone},
		"role":             {reg.Role},
	}
	if picture != nil {
		p := *picture
		p.Field = "pdp"
		picture = &p
	}

	if _, err := s.Client.Send(ctx, http.MethodPost, "users/register", fields, picture); err != nil {
		s.logger().Error("sign-up failed", "email", reg.Email, "error", err)
		return &Error{Message: registerMessage(err), Err: err}
	}
	s.logger().Info("registered account", "email", reg.Email, "role", reg.Role)
	return nil
}

func registerMessage(err error) string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return MsgRegisterFailed
	}
	if apiErr.Status == 0 {
		return client.MsgUnreachable
	}
	if msg := apiErr.ServerMessage(); msg != "" {
		return msg
	}
	return MsgRegisterFailed
}

// Logout forgets the stored token.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.Tokens.ClearToken(ctx); err != nil {
		return err
	}
	s.logger().Info("signed out")
	return nil
}

// Guard reports whether a token is stored. It does not check expiry;
// the backend rejects stale tokens.
func (s *Service) Guard(ctx context.Context) bool {
	token, err := s.Tokens.Token(ctx)
	if err != nil {
		s.logger().Error("reading token", "error", err)
		return false
	}
	return token != ""
}

// Whoami decodes the stored token.
func (s *Service) Whoami(ctx context.Context) (*Identity, error) {
	token, err := s.Tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotSignedIn
	}
	return DecodeClaims(token)
}
