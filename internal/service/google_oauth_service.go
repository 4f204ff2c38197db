package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"medical-appointment-api/config"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrNoRefreshToken is returned when Google's token response omits the
// refresh token. Happens when consent was not re-prompted; the user
// must retry the linking flow.
var ErrNoRefreshToken = errors.New("google did not return a refresh token")

// GoogleTokens is the result of an authorization-code exchange.
type GoogleTokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Email        string
}

// GoogleOAuthService runs the authorization-code flow used by doctors
// to link their Google Calendar.
type GoogleOAuthService struct {
	oauthConfig *oauth2.Config
	log         *logrus.Logger

	// userinfoURL is overridable in tests.
	userinfoURL string
}

func NewGoogleOAuthService(cfg config.GoogleConfig, log *logrus.Logger) *GoogleOAuthService {
	return &GoogleOAuthService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     googleoauth.Endpoint,
		},
		log:         log,
		userinfoURL: googleUserinfoURL,
	}
}

// AuthURL builds the consent page URL. Offline access plus forced
// consent so Google always returns a refresh token.
func (s *GoogleOAuthService) AuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode trades the authorization code for tokens and resolves
// the Google account email used to match the local user.
func (s *GoogleOAuthService) ExchangeCode(ctx context.Context, code string) (*GoogleTokens, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	if token.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	email, err := s.fetchAccountEmail(ctx, token)
	if err != nil {
		return nil, err
	}

	return &GoogleTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Email:        email,
	}, nil
}

func (s *GoogleOAuthService) fetchAccountEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	client := s.oauthConfig.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request returned HTTP %d", resp.StatusCode)
	}

	var userinfo struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if userinfo.Email == "" {
		return "", errors.New("userinfo response has no email")
	}

	return userinfo.Email, nil
}
