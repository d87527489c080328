package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rmaffei/scheduling-api/internal/model"
)

// All repository interfaces in one file
type (
	// BookingRepository persists slot reservations. A multi-slot span is a
	// chain of rows: one primary, zero or more continuations referencing it.
	BookingRepository interface {
		Get(ctx context.Context, id int64) (*model.Booking, error)
		// Chain returns the primary row followed by its continuations.
		Chain(ctx context.Context, primaryID int64) ([]*model.Booking, error)
		ListRange(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Booking, error)
		// ReserveSpan writes the primary row and every continuation row in
		// one transaction; continuation rows get the primary's generated id
		// stamped into related_booking_id. Nothing is written on failure.
		ReserveSpan(ctx context.Context, primary *model.Booking, continuations []*model.Booking) error
		Update(ctx context.Context, booking *model.Booking) error
		// FindConflicts returns non-cancelled bookings colliding with any of
		// the given spans for the professional on the date, excluding the
		// chain of excludeID when non-nil.
		FindConflicts(ctx context.Context, professionalID int64, date time.Time, spans []model.Span, excludeID *int64) ([]*model.Booking, error)
		// CancelChain flags the primary row and every continuation with the
		// cancellation timestamp and returns the number of rows flagged.
		CancelChain(ctx context.Context, primaryID int64, at time.Time) (int64, error)
	}

	// TemplateRepository serves a professional's weekly availability spans.
	TemplateRepository interface {
		GetWeekTemplate(ctx context.Context, professionalID int64) (*model.WeekTemplate, error)
	}

	// AttendanceRepository reads the clinical visit records owned by the
	// attendance module.
	AttendanceRepository interface {
		ListRange(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Attendance, error)
		// GetByBooking returns nil without error when no visit exists yet.
		GetByBooking(ctx context.Context, bookingID int64) (*model.Attendance, error)
		// ListReturnCandidates returns the patient's visits whose return
		// date is on/after minReturnDate and which have no linked return
		// booking yet.
		ListReturnCandidates(ctx context.Context, patientID int64, minReturnDate time.Time) ([]*model.Attendance, error)
	}

	// PatientRepository reads the patient slice the scheduler displays.
	PatientRepository interface {
		Get(ctx context.Context, id int64) (*model.Patient, error)
		ListByIDs(ctx context.Context, ids []int64) ([]*model.Patient, error)
		// OverdueDays returns how many days past due the patient's oldest
		// open invoice is, zero when none.
		OverdueDays(ctx context.Context, patientID int64) (int, error)
	}

	// OutboxRepository stages booking lifecycle events for the relay worker.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
