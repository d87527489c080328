package grid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/pkg/logger"
)

type mockTemplateRepo struct {
	mock.Mock
}

func (m *mockTemplateRepo) GetWeekTemplate(ctx context.Context, professionalID int64) (*model.WeekTemplate, error) {
	args := m.Called(ctx, professionalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WeekTemplate), args.Error(1)
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Get(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) Chain(ctx context.Context, primaryID int64) ([]*model.Booking, error) {
	args := m.Called(ctx, primaryID)
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListRange(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Booking, error) {
	args := m.Called(ctx, professionalID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) ReserveSpan(ctx context.Context, primary *model.Booking, continuations []*model.Booking) error {
	args := m.Called(ctx, primary, continuations)
	return args.Error(0)
}

func (m *mockBookingRepo) Update(ctx context.Context, booking *model.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockBookingRepo) FindConflicts(ctx context.Context, professionalID int64, date time.Time, spans []model.Span, excludeID *int64) ([]*model.Booking, error) {
	args := m.Called(ctx, professionalID, date, spans, excludeID)
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) CancelChain(ctx context.Context, primaryID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, primaryID, at)
	return args.Get(0).(int64), args.Error(1)
}

type mockAttendanceRepo struct {
	mock.Mock
}

func (m *mockAttendanceRepo) ListRange(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Attendance, error) {
	args := m.Called(ctx, professionalID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Attendance), args.Error(1)
}

func (m *mockAttendanceRepo) GetByBooking(ctx context.Context, bookingID int64) (*model.Attendance, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attendance), args.Error(1)
}

func (m *mockAttendanceRepo) ListReturnCandidates(ctx context.Context, patientID int64, minReturnDate time.Time) ([]*model.Attendance, error) {
	args := m.Called(ctx, patientID, minReturnDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Attendance), args.Error(1)
}

type mockPatientRepo struct {
	mock.Mock
}

func (m *mockPatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *mockPatientRepo) ListByIDs(ctx context.Context, ids []int64) ([]*model.Patient, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Patient), args.Error(1)
}

func (m *mockPatientRepo) OverdueDays(ctx context.Context, patientID int64) (int, error) {
	args := m.Called(ctx, patientID)
	return args.Int(0), args.Error(1)
}

func newTestService(templates *mockTemplateRepo, bookings *mockBookingRepo, attendances *mockAttendanceRepo, patients *mockPatientRepo) *Service {
	return NewService(templates, bookings, attendances, patients, time.Minute, nil, logger.NewLogger(nil))
}

func mondayTemplate() *model.WeekTemplate {
	template := &model.WeekTemplate{ProfessionalID: 1}
	template.Days[time.Monday] = []model.Span{
		{Start: "08:00", End: "08:30"},
		{Start: "08:30", End: "09:00"},
	}
	return template
}

func TestBuildWeekClassifiesCells(t *testing.T) {
	templates := new(mockTemplateRepo)
	bookings := new(mockBookingRepo)
	attendances := new(mockAttendanceRepo)
	patients := new(mockPatientRepo)
	svc := newTestService(templates, bookings, attendances, patients)

	// Week of Sunday 2026-08-23; Monday is the 24th.
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	patientID := int64(7)
	booked := &model.Booking{
		ID:             10,
		ProfessionalID: 1,
		PatientID:      &patientID,
		Date:           monday,
		Start:          "08:00",
		End:            "08:30",
		Type:           model.BookingTypeAttendance,
		Status:         model.BookingStatusScheduled,
	}

	templates.On("GetWeekTemplate", mock.Anything, int64(1)).Return(mondayTemplate(), nil)
	bookings.On("ListRange", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*model.Booking{booked}, nil)
	attendances.On("ListRange", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*model.Attendance{}, nil)
	patients.On("ListByIDs", mock.Anything, []int64{7}).
		Return([]*model.Patient{{ID: 7, Name: "Ana Souza"}}, nil)

	grid, err := svc.BuildWeek(context.Background(), model.GridQuery{ProfessionalID: 1, AnchorDate: monday})
	require.NoError(t, err)

	assert.Equal(t, []string{"08:00", "08:30"}, grid.TimeLabels)

	cell := grid.Cell(monday, "08:00")
	assert.Equal(t, model.CellStateBooked, cell.State)
	assert.Equal(t, "Ana Souza", cell.Label.PatientName)
	assert.True(t, cell.Draggable())

	assert.Equal(t, model.CellStateAvailable, grid.Cell(monday, "08:30").State)

	// Tuesday has no template spans, so every label is unavailable.
	tuesday := monday.AddDate(0, 0, 1)
	assert.Equal(t, model.CellStateUnavailable, grid.Cell(tuesday, "08:00").State)
}

func TestBuildWeekSkipsCancelledBookings(t *testing.T) {
	templates := new(mockTemplateRepo)
	bookings := new(mockBookingRepo)
	attendances := new(mockAttendanceRepo)
	patients := new(mockPatientRepo)
	svc := newTestService(templates, bookings, attendances, patients)

	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	cancelledAt := time.Now()
	cancelled := &model.Booking{
		ID:             11,
		ProfessionalID: 1,
		Date:           monday,
		Start:          "08:00",
		End:            "08:30",
		Status:         model.BookingStatusScheduled,
		DisabledAt:     &cancelledAt,
	}

	templates.On("GetWeekTemplate", mock.Anything, int64(1)).Return(mondayTemplate(), nil)
	bookings.On("ListRange", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*model.Booking{cancelled}, nil)
	attendances.On("ListRange", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*model.Attendance{}, nil)
	patients.On("ListByIDs", mock.Anything, mock.Anything).Return([]*model.Patient{}, nil)

	grid, err := svc.BuildWeek(context.Background(), model.GridQuery{ProfessionalID: 1, AnchorDate: monday})
	require.NoError(t, err)

	assert.Equal(t, model.CellStateAvailable, grid.Cell(monday, "08:00").State)
}

func TestBuildWeekEmptyTemplate(t *testing.T) {
	templates := new(mockTemplateRepo)
	bookings := new(mockBookingRepo)
	attendances := new(mockAttendanceRepo)
	patients := new(mockPatientRepo)
	svc := newTestService(templates, bookings, attendances, patients)

	templates.On("GetWeekTemplate", mock.Anything, int64(1)).Return(&model.WeekTemplate{ProfessionalID: 1}, nil)
	bookings.On("ListRange", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*model.Booking{}, nil)
	attendances.On("ListRange", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]*model.Attendance{}, nil)
	patients.On("ListByIDs", mock.Anything, mock.Anything).Return([]*model.Patient{}, nil)

	grid, err := svc.BuildWeek(context.Background(), model.GridQuery{ProfessionalID: 1, AnchorDate: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, grid.TimeLabels)
	assert.Empty(t, grid.Cells)
}

func TestWeekTemplateIsCached(t *testing.T) {
	templates := new(mockTemplateRepo)
	bookings := new(mockBookingRepo)
	attendances := new(mockAttendanceRepo)
	patients := new(mockPatientRepo)
	svc := newTestService(templates, bookings, attendances, patients)

	templates.On("GetWeekTemplate", mock.Anything, int64(1)).Return(mondayTemplate(), nil).Once()

	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	spans, err := svc.DaySpans(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Len(t, spans, 2)

	spans, err = svc.DaySpans(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Len(t, spans, 2)

	templates.AssertNumberOfCalls(t, "GetWeekTemplate", 1)
}
