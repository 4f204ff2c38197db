package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medical-appointment-api/internal/converter"
	"medical-appointment-api/internal/delivery/dto"
	"medical-appointment-api/internal/delivery/http/middleware"
	"medical-appointment-api/internal/domain/entity"
	"medical-appointment-api/internal/domain/repository"
	"medical-appointment-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNotPatient           = errors.New("only patients can request appointments")
	ErrAdminListing         = errors.New("admin listing is not available on this endpoint")
	ErrInvalidPriority      = errors.New("unknown priority level")
	ErrInvalidTimeRange     = errors.New("end time must be after start time")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentTerminal  = errors.New("appointment is in a terminal state")
	ErrCallerNotInContext   = errors.New("user not found in context")
)

type AppointmentUsecase interface {
	RequestAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	userRepo        repository.UserRepository
	appointmentRepo repository.AppointmentRepository
	engine          *service.AssignmentEngine
	calendar        service.CalendarBridge
	auditService    service.AuditService
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	appointmentRepo repository.AppointmentRepository,
	engine *service.AssignmentEngine,
	calendar service.CalendarBridge,
	auditService service.AuditService,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		userRepo:        userRepo,
		appointmentRepo: appointmentRepo,
		engine:          engine,
		calendar:        calendar,
		auditService:    auditService,
	}
}

// RequestAppointment creates an appointment for the calling patient
// and runs the assignment engine against the current doctor pool.
//
// Flow:
// 1. Verify caller role is patient
// 2. Validate priority and optional time range
// 3. Load active doctors and their confirmed-future load
// 4. Engine decision: Scheduled (doctor + slot) or Deferred
// 5. Persist the appointment
// 6. Confirmed virtual appointments get a Meet link; any calendar
//    failure leaves the confirmed record in place without a link
func (u *appointmentUsecase) RequestAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrCallerNotInContext
	}
	role, _ := middleware.GetUserRoleFromContext(ctx)
	if role != string(entity.RolePatient) {
		return nil, ErrNotPatient
	}

	priority := entity.PriorityLevel(req.Priority)
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	db := u.db.WithContext(ctx)

	pool, err := u.loadDoctorPool(db)
	if err != nil {
		u.log.Warnf("Failed to load doctor pool: %+v", err)
		return nil, err
	}

	outcome := u.engine.Assign(service.AssignmentRequest{
		PatientID:      userID,
		Priority:       priority,
		IsVirtual:      req.IsVirtual,
		RequestedStart: req.StartTime,
		RequestedEnd:   req.EndTime,
	}, pool)

	appointment := &entity.Appointment{
		PatientID: userID,
		IsVirtual: req.IsVirtual,
		Priority:  priority,
		Status:    entity.AppointmentStatusRequested,
		Notes:     req.Notes,
	}

	if outcome.Scheduled() {
		appointment.Confirm(outcome.Doctor.ID, outcome.StartTime, outcome.EndTime)
	} else {
		appointment.Notes = appendNote(req.Notes, "deferred: "+outcome.DeferredReason)
	}

	// The pool read above and this write are deliberately not a single
	// transaction: two concurrent requests may race for the same
	// least-loaded doctor. Accepted best-effort behavior.
	if err := u.appointmentRepo.Create(db, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.audit(ctx, db, &userID, entity.AuditActionAppointmentCreate, entity.JSON{
		"appointment_id": appointment.ID.String(),
		"priority":       string(appointment.Priority),
		"status":         string(appointment.Status),
	})

	if outcome.Scheduled() {
		u.audit(ctx, db, &userID, entity.AuditActionAppointmentAssign, entity.JSON{
			"appointment_id": appointment.ID.String(),
			"doctor_id":      outcome.Doctor.ID.String(),
			"start_time":     outcome.StartTime,
		})
	}

	if appointment.IsConfirmed() && appointment.IsVirtual {
		if err := u.attachMeeting(ctx, db, appointment, outcome.Doctor); err != nil {
			// The local record keeps doctor and time; only the
			// conferencing link is missing. Caller retries out of band.
			return converter.AppointmentToResponse(appointment), err
		}
	}

	u.log.Infof("Appointment created: id=%s, status=%s, priority=%s", appointment.ID, appointment.Status, appointment.Priority)
	return converter.AppointmentToResponse(appointment), nil
}

// GetMyAppointments lists appointments owned by the caller: as patient
// for patients, as assigned doctor for doctors. Admins have no listing
// here.
func (u *appointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrCallerNotInContext
	}
	role, _ := middleware.GetUserRoleFromContext(ctx)

	db := u.db.WithContext(ctx)

	var appointments []entity.Appointment
	var err error
	switch entity.Role(role) {
	case entity.RolePatient:
		appointments, err = u.appointmentRepo.FindByPatientID(db, userID)
	case entity.RoleDoctor:
		appointments, err = u.appointmentRepo.FindByDoctorID(db, userID)
	default:
		return nil, ErrAdminListing
	}
	if err != nil {
		u.log.Warnf("Failed to find appointments for user %s: %+v", userID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// UpdateStatus applies an administrative status transition. Cancelled
// and completed appointments are terminal and reject further changes.
func (u *appointmentUsecase) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.AppointmentStatus) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrCallerNotInContext
	}

	db := u.db.WithContext(ctx)

	appointment, err := u.appointmentRepo.FindByID(db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.IsTerminal() {
		return nil, ErrAppointmentTerminal
	}

	affected, err := u.appointmentRepo.UpdateStatus(db, id, status)
	if err != nil {
		u.log.Warnf("Failed to update status of appointment %s: %+v", id, err)
		return nil, err
	}
	if affected == 0 {
		// Lost a race with a concurrent terminal transition.
		return nil, ErrAppointmentTerminal
	}

	u.audit(ctx, db, &userID, entity.AuditActionAppointmentStatus, entity.JSON{
		"appointment_id": id.String(),
		"old_status":     string(appointment.Status),
		"new_status":     string(status),
	})

	appointment.Status = status
	return converter.AppointmentToResponse(appointment), nil
}

// loadDoctorPool pairs every active doctor with their confirmed future
// appointment count, the load metric used by the engine.
func (u *appointmentUsecase) loadDoctorPool(db *gorm.DB) ([]service.DoctorLoad, error) {
	doctors, err := u.userRepo.FindActiveDoctors(db)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pool := make([]service.DoctorLoad, 0, len(doctors))
	for _, doctor := range doctors {
		count, err := u.appointmentRepo.CountConfirmedFuture(db, doctor.ID, now)
		if err != nil {
			return nil, err
		}
		pool = append(pool, service.DoctorLoad{Doctor: doctor, ConfirmedFuture: count})
	}
	return pool, nil
}

// attachMeeting creates the Meet event for a confirmed virtual
// appointment and stores the join link. The conference request id is
// derived from the appointment id so provider-side retries do not
// create duplicate meetings.
func (u *appointmentUsecase) attachMeeting(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, doctor *entity.User) error {
	patient, err := u.userRepo.FindByID(db, appointment.PatientID)
	if err != nil {
		u.log.Warnf("Failed to load patient %s for meeting creation: %+v", appointment.PatientID, err)
		return &service.CalendarError{Detail: "could not resolve patient for invitation"}
	}
	if patient == nil {
		return &service.CalendarError{Detail: "could not resolve patient for invitation"}
	}

	summary := fmt.Sprintf("Medical consultation with %s", patient.FullName)
	description := "Virtual consultation scheduled by the appointment system."
	requestID := "appt-" + appointment.ID.String()

	meeting, err := u.calendar.CreateMeeting(ctx, doctor, patient.Email,
		*appointment.StartTime, *appointment.EndTime, summary, description, requestID)
	if err != nil {
		u.log.Warnf("Failed to create meeting for appointment %s: %+v", appointment.ID, err)
		return err
	}

	appointment.VideoURL = &meeting.MeetURL
	if err := u.appointmentRepo.Update(db, appointment); err != nil {
		// The event exists remotely; the link can be re-fetched later.
		u.log.Errorf("Failed to store meeting link for appointment %s: %+v", appointment.ID, err)
		return &service.CalendarError{Detail: "meeting created but link could not be stored"}
	}

	u.audit(ctx, db, &appointment.PatientID, entity.AuditActionMeetingCreated, entity.JSON{
		"appointment_id": appointment.ID.String(),
		"event_url":      meeting.EventURL,
	})

	return nil
}

func (u *appointmentUsecase) audit(ctx context.Context, db *gorm.DB, userID *uuid.UUID, action string, metadata entity.JSON) {
	// Audit failures never fail the business operation.
	_ = u.auditService.Log(ctx, db, userID, action, metadata)
}

func validateTimeRange(start, end *time.Time) error {
	if start == nil && end == nil {
		return nil
	}
	if start == nil || end == nil {
		return ErrInvalidTimeRange
	}
	if !end.After(*start) {
		return ErrInvalidTimeRange
	}
	return nil
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + "\n" + extra
}
