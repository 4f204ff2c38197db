package entity

import (
	"time"

	"github.com/google/uuid"
)

// PriorityLevel classifies how soon an appointment must be scheduled
type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
	PriorityUrgent PriorityLevel = "urgent"
)

var priorityRank = map[PriorityLevel]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// IsValid reports whether the level is one of the known priorities.
func (p PriorityLevel) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank returns the position of the level in the total order
// urgent > high > medium > low. Unknown levels rank below low.
func (p PriorityLevel) Rank() int {
	rank, ok := priorityRank[p]
	if !ok {
		return -1
	}
	return rank
}

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusRequested AppointmentStatus = "requested"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Appointment represents a patient's appointment request and, once a
// doctor is assigned, the scheduled consultation. DoctorID, StartTime
// and EndTime stay null while the appointment is still requested.
type Appointment struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID  *uuid.UUID        `gorm:"type:uuid;index" json:"doctor_id,omitempty"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	IsVirtual bool              `gorm:"not null;default:true" json:"is_virtual"`
	Priority  PriorityLevel     `gorm:"type:priority_level;not null;default:'medium';index" json:"priority"`
	Status    AppointmentStatus `gorm:"type:appointment_status;not null;default:'requested';index" json:"status"`
	VideoURL  *string           `gorm:"type:text" json:"video_url,omitempty"`
	Notes     string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsRequested checks if the appointment is still waiting for a doctor
func (a *Appointment) IsRequested() bool {
	return a.Status == AppointmentStatusRequested
}

// IsConfirmed checks if a doctor and time have been assigned
func (a *Appointment) IsConfirmed() bool {
	return a.Status == AppointmentStatusConfirmed
}

// IsTerminal reports whether the appointment reached a final state.
// Cancelled and completed appointments accept no further doctor or
// time reassignment.
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCancelled || a.Status == AppointmentStatusCompleted
}

// Confirm assigns the doctor and time slot and marks the appointment confirmed
func (a *Appointment) Confirm(doctorID uuid.UUID, start, end time.Time) {
	a.DoctorID = &doctorID
	a.StartTime = &start
	a.EndTime = &end
	a.Status = AppointmentStatusConfirmed
}
