// Package service contains the application's business logic.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"triplog/internal/config"
	"triplog/internal/identity"
	"triplog/internal/models"
	"triplog/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService exchanges verified social identities for app sessions.
type AuthService struct {
	userRepo repository.UserRepository
	verifier *identity.Registry
	cfg      *config.Config
}

type SocialLoginInput struct {
	Provider string `json:"provider"`
	IDToken  string `json:"id_token"`
}

// AuthResult is the session payload returned by login and refresh.
type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func NewAuthService(userRepo repository.UserRepository, verifier *identity.Registry, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		verifier: verifier,
		cfg:      cfg,
	}
}

// SocialLogin verifies the provider token and returns a session, creating the
// account on first login. An existing account with the same email but a
// different provider is not silently linked; that is a conflict the user has
// to resolve by using the original provider.
func (s *AuthService) SocialLogin(ctx context.Context, in SocialLoginInput) (*AuthResult, error) {
	if in.Provider == "" || in.IDToken == "" {
		return nil, models.NewValidationError("provider and id_token are required")
	}

	ident, err := s.verifier.Verify(ctx, in.Provider, in.IDToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByProviderIdentity(ctx, ident.Provider, ident.ProviderID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		existing, err := s.userRepo.GetByEmail(ctx, ident.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, models.NewConflictError(
				fmt.Sprintf("Account already exists with provider %s", existing.Provider))
		}

		user = &models.User{
			Email:        ident.Email,
			Name:         ident.Name,
			Nickname:     defaultNickname(ident),
			ProfileImage: ident.Picture,
			Provider:     ident.Provider,
			ProviderID:   ident.ProviderID,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	} else if err := s.backfillProfile(ctx, user, ident); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, user)
}

// backfillProfile fills profile fields the account is missing from the fresh
// identity. Apple sends the name only on the very first authorization, so a
// user created before that quirk was handled may have an empty name.
func (s *AuthService) backfillProfile(ctx context.Context, user *models.User, ident *identity.Identity) error {
	changed := false
	if user.Name == "" && ident.Name != "" {
		user.Name = ident.Name
		changed = true
	}
	if user.ProfileImage == "" && ident.Picture != "" {
		user.ProfileImage = ident.Picture
		changed = true
	}
	if !changed {
		return nil
	}
	return s.userRepo.Update(ctx, user)
}

// Withdraw hard-deletes the account. The row is gone immediately; access
// tokens still in flight fail on the next user lookup.
func (s *AuthService) Withdraw(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}

// Refresh rotates the session: the presented refresh token must match the one
// stored for the user, and a new pair replaces it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, models.NewValidationError("refresh_token is required")
	}

	userID, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		// A mismatch means the token was already rotated or revoked.
		return nil, models.NewUnauthorizedError("Refresh token revoked")
	}

	return s.issueSession(ctx, user)
}

// Logout revokes the user's refresh token. Access tokens stay valid until
// they expire; they are short-lived for this reason.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	return s.userRepo.UpdateRefreshToken(ctx, userID, nil)
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	accessToken, err := s.signToken(user.ID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL, "")
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refreshToken, err := s.signToken(user.ID, s.cfg.JWTRefreshSecret, s.cfg.RefreshTokenTTL, "refresh")
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, err
	}
	user.RefreshToken = &refreshToken

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) signToken(userID uint, secret string, ttl time.Duration, typ string) (string, error) {
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", userID),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
		// Two tokens minted within the same second would otherwise be
		// byte-identical, making rotation a no-op.
		"jti": uuid.NewString(),
	}
	if typ != "" {
		claims["typ"] = typ
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *AuthService) parseRefreshToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.NewUnauthorizedError("Invalid signing method")
		}
		return []byte(s.cfg.JWTRefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return 0, models.NewUnauthorizedError("Token is not a refresh token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, models.NewUnauthorizedError("Invalid token subject")
	}
	var userID uint
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	return userID, nil
}

// defaultNickname derives a nickname when the provider sends no name; Apple
// never includes one in the ID token.
func defaultNickname(ident *identity.Identity) string {
	if ident.Name != "" {
		return ident.Name
	}
	if at := strings.Index(ident.Email, "@"); at > 0 {
		return ident.Email[:at]
	}
	return "traveler"
}
