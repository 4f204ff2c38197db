package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateAppointmentRequest is a patient's appointment request. Start
// and end time are optional: when both are present their duration is
// preserved by the assignment engine, anchored to the computed start.
type CreateAppointmentRequest struct {
	Priority  string     `json:"priority" validate:"required,oneof=low medium high urgent"`
	IsVirtual bool       `json:"is_virtual"`
	Notes     string     `json:"notes" validate:"omitempty,max=2000"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=cancelled completed no_show"`
}

// Response DTOs

type AppointmentResponse struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	IsVirtual bool       `json:"is_virtual"`
	Priority  string     `json:"priority"`
	Status    string     `json:"status"`
	VideoURL  *string    `json:"video_url,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
