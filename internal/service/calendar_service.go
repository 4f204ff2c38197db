package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medical-appointment-api/config"
	"medical-appointment-api/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	// ErrCalendarNotLinked means the doctor never connected their
	// Google Calendar; no network call is made in that case.
	ErrCalendarNotLinked = errors.New("doctor has not linked a Google Calendar")

	// ErrCredentialExpired means Google rejected the stored refresh
	// token (revoked or expired); the doctor must re-link their
	// calendar.
	ErrCredentialExpired = errors.New("google refresh token is invalid or revoked")
)

// CalendarError wraps any provider-side failure (HTTP error, malformed
// response, missing conference link) so callers never see
// provider-specific error types.
type CalendarError struct {
	Detail string
}

func (e *CalendarError) Error() string {
	return "calendar provider error: " + e.Detail
}

// MeetingInfo holds the joinable conference link and the event's
// canonical viewing URL.
type MeetingInfo struct {
	MeetURL  string `json:"meet_url"`
	EventURL string `json:"event_url"`
}

// CalendarBridge creates a conferencing-enabled event on an external
// calendar. Implemented by CalendarService; stubbed in tests.
type CalendarBridge interface {
	CreateMeeting(ctx context.Context, doctor *entity.User, patientEmail string, start, end time.Time, summary, description, requestID string) (*MeetingInfo, error)
}

// CalendarService talks to Google Calendar on behalf of a doctor,
// exchanging their stored refresh token for a short-lived access token
// and inserting a Meet-enabled event with both parties as attendees.
type CalendarService struct {
	oauthConfig *oauth2.Config
	log         *logrus.Logger
	location    *time.Location
	timeZone    string
	callTimeout time.Duration

	// clientOptions lets tests point the Calendar client at a fake
	// endpoint. Empty in production.
	clientOptions []option.ClientOption
}

func NewCalendarService(cfg config.GoogleConfig, log *logrus.Logger, opts ...option.ClientOption) (*CalendarService, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar time zone %q: %w", cfg.TimeZone, err)
	}

	return &CalendarService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     googleoauth.Endpoint,
		},
		log:           log,
		location:      location,
		timeZone:      cfg.TimeZone,
		callTimeout:   cfg.CallTimeout,
		clientOptions: opts,
	}, nil
}

// CreateMeeting inserts a Meet-enabled event on the doctor's primary
// calendar and returns the extracted video link. The requestID is the
// conference dedup key: Google treats repeated inserts with the same
// id as the same conference, so retries for one appointment do not
// spawn duplicate meetings.
func (s *CalendarService) CreateMeeting(ctx context.Context, doctor *entity.User, patientEmail string, start, end time.Time, summary, description, requestID string) (*MeetingInfo, error) {
	if !doctor.IsCalendarLinked() {
		return nil, ErrCalendarNotLinked
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	// Exchange the long-lived refresh token for an access token. A
	// rejection here means the doctor revoked access and must re-link.
	tokenSource := s.oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: *doctor.GoogleRefreshToken,
	})
	token, err := tokenSource.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			s.log.Warnf("Google rejected refresh token for doctor %s: %+v", doctor.ID, err)
			return nil, ErrCredentialExpired
		}
		return nil, &CalendarError{Detail: fmt.Sprintf("token exchange failed: %v", err)}
	}

	options := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(token)),
	}, s.clientOptions...)

	calendarService, err := calendar.NewService(ctx, options...)
	if err != nil {
		return nil, &CalendarError{Detail: fmt.Sprintf("failed to build calendar client: %v", err)}
	}

	event := &calendar.Event{
		Summary:     summary,
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: s.localize(start).Format(time.RFC3339),
			TimeZone: s.timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: s.localize(end).Format(time.RFC3339),
			TimeZone: s.timeZone,
		},
		Attendees: []*calendar.EventAttendee{
			{Email: doctor.Email},
			{Email: patientEmail, ResponseStatus: "needsAction"},
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: requestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "email", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := calendarService.Events.Insert("primary", event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			s.log.Warnf("Google Calendar API error for doctor %s: %+v", doctor.ID, apiErr)
			return nil, &CalendarError{Detail: fmt.Sprintf("provider returned HTTP %d: %s", apiErr.Code, apiErr.Message)}
		}
		return nil, &CalendarError{Detail: fmt.Sprintf("event insert failed: %v", err)}
	}

	meetURL := extractMeetLink(created)
	if meetURL == "" {
		return nil, &CalendarError{Detail: "provider response has no video entry point"}
	}

	return &MeetingInfo{
		MeetURL:  meetURL,
		EventURL: created.HtmlLink,
	}, nil
}

// localize renders the instant in the configured zone. The instant is
// never reinterpreted, so timestamps that already carry an offset are
// not shifted twice.
func (s *CalendarService) localize(t time.Time) time.Time {
	return t.In(s.location)
}

// extractMeetLink returns the first video-type entry point of the
// event's conference data, or empty.
func extractMeetLink(event *calendar.Event) string {
	if event.ConferenceData == nil {
		return ""
	}
	for _, entryPoint := range event.ConferenceData.EntryPoints {
		if entryPoint.EntryPointType == "video" {
			return entryPoint.Uri
		}
	}
	return ""
}
