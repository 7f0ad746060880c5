package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/supabase"
	"commission-art-backend/internal/validation"
)

type AuthService struct {
	identity Identity
	profiles ProfileStore
	logger   *slog.Logger
}

func NewAuthService(identity Identity, profiles ProfileStore, logger *slog.Logger) *AuthService {
	return &AuthService{
		identity: identity,
		profiles: profiles,
		logger:   logger,
	}
}

// SignedIn pairs an identity provider session with the caller's profile.
type SignedIn struct {
	Session *supabase.AuthSession
	Profile *models.Profile
}

// Register creates the account and its profile row with role user.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*SignedIn, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	fullName = validation.CleanText(fullName)
	if err := validation.Credentials(email, password); err != nil {
		return nil, err
	}

	auth, err := s.identity.SignUp(ctx, email, password, fullName)
	if err != nil {
		if errors.Is(err, supabase.ErrAuthRejected) {
			return nil, &validation.Error{Field: "email", Message: "registration was rejected; the email may already be in use"}
		}
		return nil, &StoreError{Op: "sign up", Err: err}
	}

	profile, err := s.profiles.CreateProfile(ctx, auth.UserID, email, fullName)
	if err != nil {
		return nil, storeError("create profile", err)
	}

	s.logger.Info("user registered", "user_id", auth.UserID)
	return &SignedIn{Session: auth, Profile: profile}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*SignedIn, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrUnauthenticated
	}

	auth, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, supabase.ErrAuthRejected) {
			return nil, ErrUnauthenticated
		}
		return nil, &StoreError{Op: "sign in", Err: err}
	}

	profile, err := s.profiles.GetProfile(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			// Accounts created outside this API get their profile on first sign-in.
			profile, err = s.profiles.CreateProfile(ctx, auth.UserID, email, "")
		}
		if err != nil {
			return nil, storeError("load profile", err)
		}
	}
	if profile.IsBanned {
		return nil, ErrForbidden
	}

	return &SignedIn{Session: auth, Profile: profile}, nil
}

// Logout ends the session on the identity provider.
func (s *AuthService) Logout(ctx context.Context, sess *session.Context) error {
	if err := s.identity.SignOut(ctx, sess.AccessToken); err != nil {
		return &StoreError{Op: "sign out", Err: err}
	}
	s.logger.Info("user signed out", "user_id", sess.UserID)
	return nil
}

// Users lists every profile for the admin dashboard.
func (s *AuthService) Users(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, storeError("list profiles", err)
	}
	return profiles, nil
}
