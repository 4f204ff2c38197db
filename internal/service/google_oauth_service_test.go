package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthURL_RequestsOfflineConsent(t *testing.T) {
	svc := NewGoogleOAuthService(testGoogleConfig(), quietLogger())

	rawURL := svc.AuthURL("state-123")

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "state-123", query.Get("state"))
	assert.Equal(t, "offline", query.Get("access_type"))
	assert.Equal(t, "consent", query.Get("prompt"))
	assert.Equal(t, "client-id", query.Get("client_id"))
}

func TestExchangeCode_ResolvesAccountEmail(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "short-lived",
			"refresh_token": "long-lived",
			"token_type": "Bearer",
			"expires_in": 3600
		}`))
	}))
	defer tokenSrv.Close()

	userinfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email": "doctor@clinic.test"}`))
	}))
	defer userinfoSrv.Close()

	svc := NewGoogleOAuthService(testGoogleConfig(), quietLogger())
	svc.oauthConfig.Endpoint = oauth2.Endpoint{TokenURL: tokenSrv.URL}
	svc.userinfoURL = userinfoSrv.URL

	tokens, err := svc.ExchangeCode(context.Background(), "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "short-lived", tokens.AccessToken)
	assert.Equal(t, "long-lived", tokens.RefreshToken)
	assert.Equal(t, "doctor@clinic.test", tokens.Email)
}

func TestExchangeCode_MissingRefreshToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "short-lived", "token_type": "Bearer", "expires_in": 3600}`))
	}))
	defer tokenSrv.Close()

	svc := NewGoogleOAuthService(testGoogleConfig(), quietLogger())
	svc.oauthConfig.Endpoint = oauth2.Endpoint{TokenURL: tokenSrv.URL}

	_, err := svc.ExchangeCode(context.Background(), "auth-code")

	assert.ErrorIs(t, err, ErrNoRefreshToken)
}
