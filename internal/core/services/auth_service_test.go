package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/config"
	"assotessera/internal/pkg/jwt"
	"assotessera/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authConfig() *config.Config {
	return &config.Config{
		PublicURL: "https://tesseramento.example.org",
		JWT:       config.JWTConfig{Secret: "test-secret", SessionMinutes: 60},
		MagicLink: config.MagicLinkConfig{TokenTTLMinutes: 15},
	}
}

func newAuthService() (*AuthService, *fakeUserRepo, *fakeLoginTokenRepo, *fakeMail) {
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeLoginTokenRepo(userRepo)
	mail := &fakeMail{}
	svc := NewAuthService(userRepo, tokenRepo, newFakeAdminRepo(), mail, authConfig())
	return svc, userRepo, tokenRepo, mail
}

func linkToken(t *testing.T, link string) string {
	t.Helper()
	idx := strings.Index(link, "token=")
	require.GreaterOrEqual(t, idx, 0)
	return link[idx+len("token="):]
}

func TestAuthService_RequestMagicLink(t *testing.T) {
	t.Run("creates the user on first request", func(t *testing.T) {
		svc, userRepo, _, mail := newAuthService()

		require.NoError(t, svc.RequestMagicLink(context.Background(), "nuovo@example.org", true))

		user, err := userRepo.GetByEmail(context.Background(), "nuovo@example.org")
		require.NoError(t, err)
		assert.True(t, user.Newsletter)
		assert.Equal(t, []string{"nuovo@example.org"}, mail.magicLinks)
		assert.Contains(t, mail.lastLink, "https://tesseramento.example.org/api/v1/auth/verify?token=")
	})

	t.Run("rejects implausible emails", func(t *testing.T) {
		svc, _, _, _ := newAuthService()
		require.ErrorIs(t, svc.RequestMagicLink(context.Background(), "not-an-email", false), ErrInvalidEmail)
	})

	t.Run("a new request revokes the previous token", func(t *testing.T) {
		svc, _, _, mail := newAuthService()

		require.NoError(t, svc.RequestMagicLink(context.Background(), "socio@example.org", false))
		firstToken := linkToken(t, mail.lastLink)

		require.NoError(t, svc.RequestMagicLink(context.Background(), "socio@example.org", false))
		secondToken := linkToken(t, mail.lastLink)
		require.NotEqual(t, firstToken, secondToken)

		_, err := svc.VerifyMagicLink(context.Background(), firstToken)
		require.ErrorIs(t, err, ErrTokenUsed)

		session, err := svc.VerifyMagicLink(context.Background(), secondToken)
		require.NoError(t, err)
		assert.Equal(t, "socio@example.org", session.User.Email)
	})
}

func TestAuthService_VerifyMagicLink(t *testing.T) {
	t.Run("consumes the token and mints a member session", func(t *testing.T) {
		svc, _, _, mail := newAuthService()
		require.NoError(t, svc.RequestMagicLink(context.Background(), "socio@example.org", false))

		session, err := svc.VerifyMagicLink(context.Background(), linkToken(t, mail.lastLink))
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)

		claims, err := jwt.ValidateSessionToken(session.AccessToken, "test-secret")
		require.NoError(t, err)
		assert.Equal(t, "socio@example.org", claims.Email)
		assert.Equal(t, "MEMBER", claims.Role)
	})

	t.Run("a token is single use", func(t *testing.T) {
		svc, _, _, mail := newAuthService()
		require.NoError(t, svc.RequestMagicLink(context.Background(), "socio@example.org", false))
		token := linkToken(t, mail.lastLink)

		_, err := svc.VerifyMagicLink(context.Background(), token)
		require.NoError(t, err)

		_, err = svc.VerifyMagicLink(context.Background(), token)
		require.ErrorIs(t, err, ErrTokenUsed)
	})

	t.Run("expired tokens are rejected", func(t *testing.T) {
		svc, _, tokenRepo, mail := newAuthService()
		require.NoError(t, svc.RequestMagicLink(context.Background(), "socio@example.org", false))
		token := linkToken(t, mail.lastLink)

		for _, stored := range tokenRepo.tokens {
			stored.ExpiresAt = time.Now().Add(-time.Minute)
		}

		_, err := svc.VerifyMagicLink(context.Background(), token)
		require.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("unknown tokens are rejected", func(t *testing.T) {
		svc, _, _, _ := newAuthService()
		_, err := svc.VerifyMagicLink(context.Background(), "deadbeef")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthService_AdminLogin(t *testing.T) {
	hash, err := password.Hash("super-secret-pw")
	require.NoError(t, err)
	adminRepo := newFakeAdminRepo(&models.Admin{ID: 1, Email: "admin@example.org", Password: hash})

	userRepo := newFakeUserRepo()
	svc := NewAuthService(userRepo, newFakeLoginTokenRepo(userRepo), adminRepo, &fakeMail{}, authConfig())

	t.Run("valid credentials mint an admin session", func(t *testing.T) {
		token, err := svc.AdminLogin(context.Background(), "admin@example.org", "super-secret-pw")
		require.NoError(t, err)

		claims, err := jwt.ValidateSessionToken(token, "test-secret")
		require.NoError(t, err)
		assert.Equal(t, "ADMIN", claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.AdminLogin(context.Background(), "admin@example.org", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown admin", func(t *testing.T) {
		_, err := svc.AdminLogin(context.Background(), "ghost@example.org", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
