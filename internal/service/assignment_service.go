package service

import (
	"strings"
	"time"

	"medical-appointment-api/config"
	"medical-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
)

// DeferredNoDoctor is the reason recorded when the active doctor pool
// is empty. Not an error: the appointment simply stays requested.
const DeferredNoDoctor = "no doctor available"

// AssignmentRequest is a pending appointment request as seen by the
// engine. RequestedStart/RequestedEnd only matter as a pair: when both
// are set, their duration is preserved, anchored to the computed start.
type AssignmentRequest struct {
	PatientID      uuid.UUID
	Priority       entity.PriorityLevel
	IsVirtual      bool
	RequestedStart *time.Time
	RequestedEnd   *time.Time
}

// DoctorLoad pairs a candidate doctor with the number of confirmed
// future appointments already assigned to them.
type DoctorLoad struct {
	Doctor          entity.User
	ConfirmedFuture int64
}

// AssignmentOutcome is the tagged result of an assignment decision:
// either a doctor and time slot were chosen, or the request is
// deferred with a reason.
type AssignmentOutcome struct {
	Doctor         *entity.User
	StartTime      time.Time
	EndTime        time.Time
	DeferredReason string
}

// Scheduled reports whether a doctor was assigned.
func (o AssignmentOutcome) Scheduled() bool {
	return o.Doctor != nil
}

// AssignmentEngine turns an appointment request and a doctor pool into
// a scheduling decision. It is deterministic and free of side effects:
// no persistence or network calls happen here, the caller supplies the
// pool and applies the outcome.
type AssignmentEngine struct {
	cfg config.SchedulingConfig
	now func() time.Time
}

func NewAssignmentEngine(cfg config.SchedulingConfig) *AssignmentEngine {
	return &AssignmentEngine{
		cfg: cfg,
		now: time.Now,
	}
}

// Assign picks the least-loaded doctor from the pool and computes the
// time slot from the request's priority. Ties on load break toward the
// lowest doctor id, so repeated calls with the same inputs select the
// same doctor. An empty pool yields a deferred outcome.
func (e *AssignmentEngine) Assign(req AssignmentRequest, pool []DoctorLoad) AssignmentOutcome {
	if len(pool) == 0 {
		return AssignmentOutcome{DeferredReason: DeferredNoDoctor}
	}

	selected := pool[0]
	for _, candidate := range pool[1:] {
		if candidate.ConfirmedFuture < selected.ConfirmedFuture {
			selected = candidate
			continue
		}
		if candidate.ConfirmedFuture == selected.ConfirmedFuture &&
			strings.Compare(candidate.Doctor.ID.String(), selected.Doctor.ID.String()) < 0 {
			selected = candidate
		}
	}

	start := e.now().Add(e.leadFor(req.Priority))
	end := start.Add(e.durationFor(req))

	doctor := selected.Doctor
	return AssignmentOutcome{
		Doctor:    &doctor,
		StartTime: start,
		EndTime:   end,
	}
}

// leadFor maps a priority level to how far in the future the slot is
// placed: urgent soonest, low/medium next day.
func (e *AssignmentEngine) leadFor(priority entity.PriorityLevel) time.Duration {
	switch priority {
	case entity.PriorityUrgent:
		return e.cfg.UrgentLead
	case entity.PriorityHigh:
		return e.cfg.HighLead
	default:
		return e.cfg.DefaultLead
	}
}

// durationFor preserves a caller-specified duration when the request
// carries a valid time range, otherwise falls back to the default.
func (e *AssignmentEngine) durationFor(req AssignmentRequest) time.Duration {
	if req.RequestedStart != nil && req.RequestedEnd != nil {
		if d := req.RequestedEnd.Sub(*req.RequestedStart); d > 0 {
			return d
		}
	}
	return e.cfg.DefaultDuration
}
