package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"medical-appointment-api/internal/delivery/dto"
	"medical-appointment-api/internal/domain/entity"
	"medical-appointment-api/internal/service"
	"medical-appointment-api/internal/usecase"
	"medical-appointment-api/pkg/response"
	"medical-appointment-api/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

// RequestAppointment lets a patient request a new appointment. The
// assignment outcome decides whether the response carries a confirmed
// slot or a still-requested record.
func (h *AppointmentHandler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.RequestAppointment(r.Context(), &req)
	if err != nil {
		h.writeRequestError(w, appointment, err)
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

// writeRequestError maps usecase errors to HTTP responses. Calendar
// failures still carry the persisted appointment: local scheduling
// succeeded, only the conferencing link is missing.
func (h *AppointmentHandler) writeRequestError(w http.ResponseWriter, appointment *dto.AppointmentResponse, err error) {
	switch {
	case errors.Is(err, usecase.ErrNotPatient):
		response.Forbidden(w, "Only patients can request appointments")
	case errors.Is(err, usecase.ErrInvalidPriority):
		response.Error(w, http.StatusBadRequest, "Unknown priority level", nil)
	case errors.Is(err, usecase.ErrInvalidTimeRange):
		response.Error(w, http.StatusBadRequest, "End time must be after start time", nil)
	case errors.Is(err, service.ErrCalendarNotLinked):
		response.JSON(w, http.StatusConflict, response.Response{
			Success: false,
			Message: "Appointment confirmed, but the doctor has not linked a Google Calendar",
			Data:    appointment,
		})
	case errors.Is(err, service.ErrCredentialExpired):
		response.JSON(w, http.StatusConflict, response.Response{
			Success: false,
			Message: "Appointment confirmed, but the doctor must re-link their Google Calendar",
			Data:    appointment,
		})
	default:
		var calendarErr *service.CalendarError
		if errors.As(err, &calendarErr) {
			response.JSON(w, http.StatusInternalServerError, response.Response{
				Success: false,
				Message: "Appointment confirmed, but the meeting link could not be created",
				Error:   calendarErr.Detail,
				Data:    appointment,
			})
			return
		}
		response.InternalServerError(w, "Failed to create appointment")
	}
}

// GetMyAppointments lists the caller's appointments
func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.GetMyAppointments(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAdminListing):
			response.Forbidden(w, "Admin listing is not available on this endpoint")
		default:
			response.InternalServerError(w, "Failed to get appointments")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

// UpdateStatus applies an administrative status transition
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.UpdateAppointmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.UpdateStatus(r.Context(), appointmentID, entity.AppointmentStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAppointmentNotFound):
			response.NotFound(w, "Appointment not found")
		case errors.Is(err, usecase.ErrAppointmentTerminal):
			response.Error(w, http.StatusConflict, "Appointment is in a terminal state", nil)
		default:
			response.InternalServerError(w, "Failed to update appointment status")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment status updated successfully", appointment)
}
