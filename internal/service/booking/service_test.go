package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/pkg/errors"
	"github.com/rmaffei/scheduling-api/pkg/logger"
)

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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) CancelChain(ctx context.Context, primaryID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, primaryID, at)
	return args.Get(0).(int64), args.Error(1)
}

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *mockOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	args := m.Called(ctx, id, errorMessage, retryAt)
	return args.Error(0)
}

func (m *mockOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(repo *mockBookingRepo, outbox *mockOutboxRepo) *Service {
	return NewService(repo, outbox, nil, logger.NewLogger(nil))
}

var testDaySpans = []model.Span{
	{Start: "08:00", End: "08:30"},
	{Start: "08:30", End: "09:00"},
	{Start: "09:00", End: "09:30"},
}

func TestReserveMultiSlotSpan(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	draft := &model.Booking{
		ProfessionalID: 1,
		Date:           date,
		Start:          "08:00",
		End:            "09:00",
		Type:           model.BookingTypeAttendance,
	}

	repo.On("FindConflicts", mock.Anything, int64(1), date, testDaySpans[0:2], (*int64)(nil)).
		Return([]*model.Booking{}, nil)
	repo.On("ReserveSpan", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			primary := args.Get(1).(*model.Booking)
			continuations := args.Get(2).([]*model.Booking)
			primary.ID = 100
			for _, c := range continuations {
				id := primary.ID
				c.RelatedBookingID = &id
			}
		}).
		Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	saved, err := svc.Reserve(context.Background(), draft, testDaySpans)
	require.NoError(t, err)

	assert.Equal(t, int64(100), saved.ID)
	assert.Equal(t, "08:00", saved.Start)
	assert.Equal(t, "08:30", saved.End)
	assert.Equal(t, model.BookingStatusScheduled, saved.Status)

	continuations := repo.Calls[1].Arguments.Get(2).([]*model.Booking)
	require.Len(t, continuations, 1)
	assert.Equal(t, "08:30", continuations[0].Start)
	assert.Equal(t, "09:00", continuations[0].End)
	require.NotNil(t, continuations[0].RelatedBookingID)
	assert.Equal(t, int64(100), *continuations[0].RelatedBookingID)

	outbox.AssertCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReserveFullMorningSpan(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	draft := &model.Booking{
		ProfessionalID: 1,
		Date:           date,
		Start:          "08:00",
		End:            "09:30",
	}

	repo.On("FindConflicts", mock.Anything, int64(1), date, testDaySpans, (*int64)(nil)).
		Return([]*model.Booking{}, nil)
	repo.On("ReserveSpan", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Booking).ID = 300
		}).
		Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	saved, err := svc.Reserve(context.Background(), draft, testDaySpans)
	require.NoError(t, err)
	assert.Equal(t, int64(300), saved.ID)

	continuations := repo.Calls[1].Arguments.Get(2).([]*model.Booking)
	require.Len(t, continuations, 2)
	assert.Equal(t, "08:30", continuations[0].Start)
	assert.Equal(t, "09:00", continuations[1].Start)
}

func TestReserveValidation(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	draft := &model.Booking{ProfessionalID: 1, Date: time.Now()}
	_, err := svc.Reserve(context.Background(), draft, testDaySpans)
	assert.True(t, errors.IsValidation(err))

	draft.Start = "12:00"
	_, err = svc.Reserve(context.Background(), draft, testDaySpans)
	assert.True(t, errors.IsValidation(err))

	// End before start writes nothing.
	draft.Start = "09:00"
	draft.End = "08:30"
	_, err = svc.Reserve(context.Background(), draft, testDaySpans)
	assert.True(t, errors.IsValidation(err))

	repo.AssertNotCalled(t, "ReserveSpan", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveConflictWritesNothing(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	draft := &model.Booking{
		ProfessionalID: 1,
		Date:           date,
		Start:          "08:00",
		End:            "09:00",
	}

	occupied := &model.Booking{ID: 55, Start: "08:30", End: "09:00"}
	repo.On("FindConflicts", mock.Anything, int64(1), date, mock.Anything, (*int64)(nil)).
		Return([]*model.Booking{occupied}, nil)

	_, err := svc.Reserve(context.Background(), draft, testDaySpans)
	assert.True(t, errors.IsConflict(err))
	assert.Contains(t, err.Error(), "08:30")

	repo.AssertNotCalled(t, "ReserveSpan", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveRejectsExtendingExistingBooking(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	draft := &model.Booking{
		ID:             42,
		ProfessionalID: 1,
		Date:           time.Now(),
		Start:          "08:00",
		End:            "09:00",
	}

	_, err := svc.Reserve(context.Background(), draft, testDaySpans)
	assert.True(t, errors.IsValidation(err))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRescheduleRefusesOccupiedTarget(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	existing := &model.Booking{ID: 42, ProfessionalID: 1, Start: "08:00", End: "08:30"}
	target := model.SlotTarget{
		Date:  time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		Start: "09:00",
		End:   "09:30",
	}

	repo.On("Get", mock.Anything, int64(42)).Return(existing, nil)
	repo.On("FindConflicts", mock.Anything, int64(1), target.Date, mock.Anything, mock.Anything).
		Return([]*model.Booking{{ID: 77}}, nil)

	_, err := svc.Reschedule(context.Background(), 42, target)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Contains(t, err.Error(), MsgSlotOccupied)

	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRescheduleMovesBooking(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	existing := &model.Booking{ID: 42, ProfessionalID: 1, Start: "08:00", End: "08:30"}
	target := model.SlotTarget{
		Date:  time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		Start: "09:00",
		End:   "09:30",
	}

	repo.On("Get", mock.Anything, int64(42)).Return(existing, nil)
	repo.On("FindConflicts", mock.Anything, int64(1), target.Date, mock.Anything, mock.Anything).
		Return([]*model.Booking{}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	moved, err := svc.Reschedule(context.Background(), 42, target)
	require.NoError(t, err)
	assert.Equal(t, target.Date, moved.Date)
	assert.Equal(t, "09:00", moved.Start)
	assert.Equal(t, "09:30", moved.End)
}

func TestRescheduleRejectsCancelledBooking(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	now := time.Now()
	repo.On("Get", mock.Anything, int64(42)).
		Return(&model.Booking{ID: 42, DisabledAt: &now}, nil)

	_, err := svc.Reschedule(context.Background(), 42, model.SlotTarget{
		Date: now, Start: "09:00", End: "09:30",
	})
	assert.True(t, errors.IsValidation(err))
}

func TestCancelFlagsWholeChainFromContinuation(t *testing.T) {
	repo := new(mockBookingRepo)
	outbox := new(mockOutboxRepo)
	svc := newTestService(repo, outbox)

	primaryID := int64(100)
	continuation := &model.Booking{ID: 101, RelatedBookingID: &primaryID}

	repo.On("Get", mock.Anything, int64(101)).Return(continuation, nil)
	repo.On("CancelChain", mock.Anything, primaryID, mock.Anything).Return(int64(2), nil)
	outbox.On("Create", mock.Anything, mock.Anything).Return(nil)

	rows, err := svc.Cancel(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
}
