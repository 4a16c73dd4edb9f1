package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/config"
	"assotessera/internal/core/domain"
	"assotessera/internal/pkg/jwt"
	"assotessera/internal/pkg/password"

	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenUsed          = errors.New("token already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// AuthService handles passwordless login and admin sessions
type AuthService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.LoginTokenRepository
	adminRepo repositories.AdminRepository
	mail      MailSender
	cfg       *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.LoginTokenRepository,
	adminRepo repositories.AdminRepository,
	mail MailSender,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		adminRepo: adminRepo,
		mail:      mail,
		cfg:       cfg,
	}
}

// SessionResponse represents an authenticated session
type SessionResponse struct {
	User        *models.UserResponse `json:"user"`
	AccessToken string               `json:"access_token"`
}

// RequestMagicLink finds or creates the user for an email and sends a
// single-use login link. Previous unconsumed tokens are revoked first.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string, newsletter bool) error {
	if !isPlausibleEmail(email) {
		return ErrInvalidEmail
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user = &models.User{Email: email, Newsletter: newsletter}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
	}

	if err := s.tokenRepo.RevokeActiveByUserID(ctx, user.ID); err != nil {
		return err
	}

	rawToken, err := generateLoginToken()
	if err != nil {
		return err
	}

	token := &models.LoginToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(rawToken),
		ExpiresAt: time.Now().Add(time.Duration(s.cfg.MagicLink.TokenTTLMinutes) * time.Minute),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/v1/auth/verify?token=%s", s.cfg.PublicURL, rawToken)
	if err := s.mail.SendMagicLink(ctx, user.Email, link); err != nil {
		// send failures are logged by the mail client; the token stays
		// valid so the user can retry the request
		return fmt.Errorf("failed to send magic link: %w", err)
	}

	return nil
}

// VerifyMagicLink consumes a login token and mints a session
func (s *AuthService) VerifyMagicLink(ctx context.Context, rawToken string) (*SessionResponse, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.tokenRepo.GetByTokenHash(ctx, password.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if token.UsedAt != nil || token.RevokedAt != nil {
		return nil, ErrTokenUsed
	}
	if token.IsExpired() {
		return nil, ErrTokenExpired
	}

	if err := s.tokenRepo.MarkUsed(ctx, token.ID); err != nil {
		return nil, err
	}

	accessToken, err := jwt.GenerateSessionToken(
		token.User.ID, token.User.Email, string(domain.RoleMember),
		s.cfg.JWT.Secret, s.cfg.JWT.SessionMinutes)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Magic link consumed for user %d", token.User.ID)

	return &SessionResponse{
		User:        token.User.ToResponse(),
		AccessToken: accessToken,
	}, nil
}

// AdminLogin authenticates an admin with email and password
func (s *AuthService) AdminLogin(ctx context.Context, email, pass string) (string, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !password.Verify(pass, admin.Password) {
		return "", ErrInvalidCredentials
	}

	return jwt.GenerateSessionToken(
		admin.ID, admin.Email, string(domain.RoleAdmin),
		s.cfg.JWT.Secret, s.cfg.JWT.SessionMinutes)
}

// generateLoginToken returns 32 random bytes hex-encoded
func generateLoginToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// isPlausibleEmail is a cheap sanity check; real validation happens when the
// link is delivered.
func isPlausibleEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := -1
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if at >= 0 {
				return false
			}
			at = i
		}
	}
	return at > 0 && at < len(email)-1
}
