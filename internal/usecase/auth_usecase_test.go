package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"medical-appointment-api/config"
	"medical-appointment-api/internal/delivery/dto"
	"medical-appointment-api/internal/domain/entity"
	"medical-appointment-api/internal/service"
	"medical-appointment-api/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	usecase AuthUsecase
	users   *stubUserRepo
	audit   *stubAudit
	redis   *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	log := logrus.New()
	log.SetOutput(io.Discard)

	users := &stubUserRepo{
		usersByID:   map[uuid.UUID]*entity.User{},
		usersByMail: map[string]*entity.User{},
	}
	audit := &stubAudit{}

	jwtService := jwt.NewJWTService(config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	})

	googleOAuth := service.NewGoogleOAuthService(config.GoogleConfig{
		ClientID:    "client-id",
		RedirectURI: "http://localhost/callback",
		Scopes:      []string{"https://www.googleapis.com/auth/calendar.events"},
	}, log)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	return &authFixture{
		usecase: NewAuthUsecase(setupMockDB(t), log, users, jwtService, redisClient, googleOAuth, audit),
		users:   users,
		audit:   audit,
		redis:   mr,
	}
}

func storedUser(f *authFixture, password string, active bool) *entity.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &entity.User{
		ID:       uuid.New(),
		Email:    "patient@mail.test",
		Password: string(hash),
		FullName: "Pat Ient",
		Role:     entity.RolePatient,
		IsActive: active,
	}
	f.users.usersByID[user.ID] = user
	f.users.usersByMail[user.Email] = user
	return user
}

func TestRegister_DefaultsToPatientRole(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.usecase.Register(context.Background(), &dto.RegisterRequest{
		Email:    "new@mail.test",
		Password: "secret123",
		FullName: "New User",
	})

	require.NoError(t, err)
	assert.Equal(t, string(entity.RolePatient), resp.Role)
	assert.True(t, resp.IsActive)
	assert.False(t, resp.CalendarLinked)
	assert.Contains(t, f.audit.actions, entity.AuditActionUserRegister)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.users.createErr = &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uni_users_email",
	}

	_, err := f.usecase.Register(context.Background(), &dto.RegisterRequest{
		Email:    "taken@mail.test",
		Password: "secret123",
		FullName: "New User",
	})

	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@mail.test",
		Password: "whatever",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	storedUser(f, "right-password", true)

	_, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@mail.test",
		Password: "wrong-password",
	})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	storedUser(f, "secret123", false)

	_, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@mail.test",
		Password: "secret123",
	})

	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t)
	storedUser(f, "secret123", true)

	tokens, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@mail.test",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Positive(t, tokens.ExpiresIn)

	// Both tokens registered as valid in Redis
	keys := f.redis.Keys()
	assert.Len(t, keys, 2)
	assert.Contains(t, f.audit.actions, entity.AuditActionUserLogin)
}

func TestRefreshToken_RotationInvalidatesOldToken(t *testing.T) {
	f := newAuthFixture(t)
	storedUser(f, "secret123", true)

	tokens, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@mail.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	rotated, err := f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old refresh token is single-use
	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The rotated token still works
	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: rotated.RefreshToken,
	})
	assert.NoError(t, err)
}

func TestRefreshToken_RejectsInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := storedUser(f, "secret123", true)

	tokens, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@mail.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	user.IsActive = false

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogout_RevokesStoredTokens(t *testing.T) {
	f := newAuthFixture(t)
	storedUser(f, "secret123", true)

	tokens, err := f.usecase.Login(context.Background(), &dto.LoginRequest{
		Email:    "patient@mail.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.Len(t, f.redis.Keys(), 2)

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret"})
	accessClaims, err := jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	refreshClaims, err := jwtService.ValidateToken(tokens.RefreshToken)
	require.NoError(t, err)

	err = f.usecase.Logout(context.Background(), accessClaims.TokenID, refreshClaims.TokenID)

	require.NoError(t, err)
	assert.Empty(t, f.redis.Keys())
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	jwtService := jwt.NewJWTService(config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: 30 * time.Minute,
	})

	accessToken, _, err := jwtService.GenerateAccessToken(uuid.New(), "patient@mail.test", "patient")
	require.NoError(t, err)

	_, err = f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: accessToken,
	})

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken_RejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.usecase.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: "not-a-token",
	})

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	user := storedUser(f, "secret123", true)

	resp, err := f.usecase.GetCurrentUser(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, user.Email, resp.Email)

	_, err = f.usecase.GetCurrentUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGoogleAuthURL_CarriesState(t *testing.T) {
	f := newAuthFixture(t)

	url := f.usecase.GoogleAuthURL("state-abc")

	assert.Contains(t, url, "state=state-abc")
	assert.Contains(t, url, "access_type=offline")
}
