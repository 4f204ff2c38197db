package service

import (
	"testing"
	"time"

	"medical-appointment-api/config"
	"medical-appointment-api/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		DefaultDuration: 30 * time.Minute,
		UrgentLead:      30 * time.Minute,
		HighLead:        2 * time.Hour,
		DefaultLead:     24 * time.Hour,
	}
}

func newTestEngine(now time.Time) *AssignmentEngine {
	engine := NewAssignmentEngine(testSchedulingConfig())
	engine.now = func() time.Time { return now }
	return engine
}

func doctorWithLoad(id string, load int64) DoctorLoad {
	return DoctorLoad{
		Doctor: entity.User{
			ID:       uuid.MustParse(id),
			Email:    "doctor-" + id[:8] + "@clinic.test",
			FullName: "Dr. " + id[:8],
			Role:     entity.RoleDoctor,
			IsActive: true,
		},
		ConfirmedFuture: load,
	}
}

func TestAssign_EmptyPoolDefers(t *testing.T) {
	engine := newTestEngine(time.Now())

	outcome := engine.Assign(AssignmentRequest{
		PatientID: uuid.New(),
		Priority:  entity.PriorityHigh,
	}, nil)

	assert.False(t, outcome.Scheduled())
	assert.Nil(t, outcome.Doctor)
	assert.Equal(t, DeferredNoDoctor, outcome.DeferredReason)
}

func TestAssign_PicksLeastLoadedDoctor(t *testing.T) {
	engine := newTestEngine(time.Now())

	busy1 := doctorWithLoad("aaaaaaaa-0000-0000-0000-000000000001", 2)
	busy2 := doctorWithLoad("bbbbbbbb-0000-0000-0000-000000000002", 2)
	free := doctorWithLoad("cccccccc-0000-0000-0000-000000000003", 1)

	outcome := engine.Assign(AssignmentRequest{
		PatientID: uuid.New(),
		Priority:  entity.PriorityMedium,
	}, []DoctorLoad{busy1, busy2, free})

	require.True(t, outcome.Scheduled())
	assert.Equal(t, free.Doctor.ID, outcome.Doctor.ID)
}

func TestAssign_TieBreaksOnLowestDoctorID(t *testing.T) {
	engine := newTestEngine(time.Now())

	lower := doctorWithLoad("11111111-0000-0000-0000-000000000001", 3)
	higher := doctorWithLoad("99999999-0000-0000-0000-000000000009", 3)

	// Pool order must not matter
	for _, pool := range [][]DoctorLoad{
		{higher, lower},
		{lower, higher},
	} {
		outcome := engine.Assign(AssignmentRequest{
			PatientID: uuid.New(),
			Priority:  entity.PriorityLow,
		}, pool)

		require.True(t, outcome.Scheduled())
		assert.Equal(t, lower.Doctor.ID, outcome.Doctor.ID)
	}
}

func TestAssign_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newTestEngine(now)

	pool := []DoctorLoad{
		doctorWithLoad("aaaaaaaa-0000-0000-0000-000000000001", 1),
		doctorWithLoad("bbbbbbbb-0000-0000-0000-000000000002", 1),
	}
	req := AssignmentRequest{PatientID: uuid.New(), Priority: entity.PriorityUrgent}

	first := engine.Assign(req, pool)
	second := engine.Assign(req, pool)

	require.True(t, first.Scheduled())
	require.True(t, second.Scheduled())
	assert.Equal(t, first.Doctor.ID, second.Doctor.ID)
	assert.True(t, first.StartTime.Equal(second.StartTime))
	assert.True(t, first.EndTime.Equal(second.EndTime))
}

func TestAssign_LeadTimePerPriority(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newTestEngine(now)
	pool := []DoctorLoad{doctorWithLoad("aaaaaaaa-0000-0000-0000-000000000001", 0)}

	tests := []struct {
		priority entity.PriorityLevel
		lead     time.Duration
	}{
		{entity.PriorityUrgent, 30 * time.Minute},
		{entity.PriorityHigh, 2 * time.Hour},
		{entity.PriorityMedium, 24 * time.Hour},
		{entity.PriorityLow, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			outcome := engine.Assign(AssignmentRequest{
				PatientID: uuid.New(),
				Priority:  tt.priority,
			}, pool)

			require.True(t, outcome.Scheduled())
			assert.True(t, outcome.StartTime.Equal(now.Add(tt.lead)))
			assert.True(t, outcome.EndTime.Equal(outcome.StartTime.Add(30*time.Minute)))
		})
	}
}

func TestAssign_PreservesRequestedDuration(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newTestEngine(now)
	pool := []DoctorLoad{doctorWithLoad("aaaaaaaa-0000-0000-0000-000000000001", 0)}

	reqStart := now.Add(48 * time.Hour)
	reqEnd := reqStart.Add(45 * time.Minute)

	outcome := engine.Assign(AssignmentRequest{
		PatientID:      uuid.New(),
		Priority:       entity.PriorityHigh,
		RequestedStart: &reqStart,
		RequestedEnd:   &reqEnd,
	}, pool)

	require.True(t, outcome.Scheduled())
	// Slot anchors to priority lead, duration comes from the caller
	assert.True(t, outcome.StartTime.Equal(now.Add(2*time.Hour)))
	assert.Equal(t, 45*time.Minute, outcome.EndTime.Sub(outcome.StartTime))
}

func TestAssign_IgnoresInvertedRequestedRange(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	engine := newTestEngine(now)
	pool := []DoctorLoad{doctorWithLoad("aaaaaaaa-0000-0000-0000-000000000001", 0)}

	reqStart := now.Add(48 * time.Hour)
	reqEnd := reqStart.Add(-15 * time.Minute)

	outcome := engine.Assign(AssignmentRequest{
		PatientID:      uuid.New(),
		Priority:       entity.PriorityLow,
		RequestedStart: &reqStart,
		RequestedEnd:   &reqEnd,
	}, pool)

	require.True(t, outcome.Scheduled())
	assert.Equal(t, 30*time.Minute, outcome.EndTime.Sub(outcome.StartTime))
}
