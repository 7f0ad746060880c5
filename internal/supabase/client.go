package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"

	"commission-art-backend/internal/config"
)

// ErrAuthRejected is returned when the identity provider refuses the
// request itself, as opposed to failing to answer.
var ErrAuthRejected = errors.New("identity provider rejected the request")

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

// AuthSession is what a successful sign-up or sign-in yields. AccessToken is
// empty when sign-up requires email confirmation.
type AuthSession struct {
	UserID       uuid.UUID
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// AuthClient talks to GoTrue. Calls never touch the shared client's session,
// so one AuthClient serves every request.
type AuthClient struct {
	auth gotrue.Client
}

func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{auth: client.Supabase.Auth}
}

func (a *AuthClient) SignUp(ctx context.Context, email, password, fullName string) (*AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := types.SignupRequest{Email: email, Password: password}
	if fullName != "" {
		req.Data = map[string]interface{}{"full_name": fullName}
	}

	resp, err := a.auth.Signup(req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", classifyAuthError(err))
	}

	// With auto-confirm on GoTrue answers with a session, otherwise with
	// the bare user.
	if resp.Session.AccessToken != "" {
		return sessionFrom(resp.Session), nil
	}
	return &AuthSession{UserID: resp.User.ID, Email: resp.User.Email}, nil
}

func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := a.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", classifyAuthError(err))
	}
	return sessionFrom(resp.Session), nil
}

// SignOut revokes the refresh tokens of the session behind accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.auth.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func sessionFrom(s types.Session) *AuthSession {
	return &AuthSession{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}
}

// gotrue-go reports HTTP failures as "response status code N: body".
func classifyAuthError(err error) error {
	msg := err.Error()
	for _, code := range []string{"status code 400", "status code 401", "status code 403", "status code 422"} {
		if strings.Contains(msg, code) {
			return fmt.Errorf("%w: %v", ErrAuthRejected, err)
		}
	}
	return err
}
