package handler

import (
	"errors"
	"net/http"

	"medical-appointment-api/internal/service"
	"medical-appointment-api/internal/usecase"
	"medical-appointment-api/pkg/response"

	"github.com/google/uuid"
)

// GoogleHandler serves the OAuth flow that doctors use to link their
// Google Calendar.
type GoogleHandler struct {
	authUsecase usecase.AuthUsecase
}

func NewGoogleHandler(authUsecase usecase.AuthUsecase) *GoogleHandler {
	return &GoogleHandler{
		authUsecase: authUsecase,
	}
}

// Login redirects the caller to Google's consent page
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.Redirect(w, r, h.authUsecase.GoogleAuthURL(state), http.StatusFound)
}

// Callback finishes the flow: exchanges the authorization code and
// stores the refresh token on the matching local account.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		response.Error(w, http.StatusBadRequest, "Missing authorization code", nil)
		return
	}

	user, err := h.authUsecase.LinkGoogleAccount(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRefreshToken):
			response.Error(w, http.StatusBadRequest, "Google did not return a refresh token, retry and grant all permissions", nil)
		case errors.Is(err, usecase.ErrUserNotFound):
			response.NotFound(w, "No account matches the Google email")
		default:
			response.InternalServerError(w, "Failed to link Google account")
		}
		return
	}

	response.Success(w, http.StatusOK, "Google Calendar linked successfully", user)
}
