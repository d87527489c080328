package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/rmaffei/scheduling-api/internal/model"
)

// The bookings table carries a partial unique index on
// (professional_id, date, start_label) WHERE disabled_at IS NULL, which is
// the final arbiter of slot uniqueness. The conflict checks here are
// advisory; a race between two near-simultaneous writes is rejected by the
// index, not by this code.

const bookingColumns = `
	id, professional_id, patient_id, contact_name, contact_phone,
	date, start_label, end_label, room_id, type, status,
	related_booking_id, return_attendance_id, observation, disabled_at,
	created_at, updated_at
`

func (r *bookingRepository) Get(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`
	var booking model.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) Chain(ctx context.Context, primaryID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1 OR related_booking_id = $1
		ORDER BY start_label ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, primaryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking chain: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListRange(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE professional_id = $1
		AND date >= $2
		AND date < $3
		AND disabled_at IS NULL
		ORDER BY date ASC, start_label ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, professionalID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ReserveSpan(ctx context.Context, primary *model.Booking, continuations []*model.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	primary.CreatedAt = now
	primary.UpdatedAt = now

	insert := `
		INSERT INTO bookings (
			professional_id, patient_id, contact_name, contact_phone,
			date, start_label, end_label, room_id, type, status,
			related_booking_id, return_attendance_id, observation,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, insert,
		primary.ProfessionalID,
		primary.PatientID,
		primary.ContactName,
		primary.ContactPhone,
		primary.Date,
		primary.Start,
		primary.End,
		primary.RoomID,
		primary.Type,
		primary.Status,
		nil,
		primary.ReturnAttendanceID,
		primary.Observation,
		primary.CreatedAt,
		primary.UpdatedAt,
	).Scan(&primary.ID)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	for _, cont := range continuations {
		cont.RelatedBookingID = &primary.ID
		cont.CreatedAt = now
		cont.UpdatedAt = now

		err = tx.QueryRowContext(ctx, insert,
			cont.ProfessionalID,
			cont.PatientID,
			cont.ContactName,
			cont.ContactPhone,
			cont.Date,
			cont.Start,
			cont.End,
			cont.RoomID,
			cont.Type,
			cont.Status,
			cont.RelatedBookingID,
			cont.ReturnAttendanceID,
			cont.Observation,
			cont.CreatedAt,
			cont.UpdatedAt,
		).Scan(&cont.ID)
		if err != nil {
			return fmt.Errorf("failed to create continuation booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET patient_id = $1, contact_name = $2, contact_phone = $3,
			date = $4, start_label = $5, end_label = $6, room_id = $7,
			type = $8, status = $9, return_attendance_id = $10,
			observation = $11, updated_at = $12
		WHERE id = $13
	`
	booking.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		booking.PatientID,
		booking.ContactName,
		booking.ContactPhone,
		booking.Date,
		booking.Start,
		booking.End,
		booking.RoomID,
		booking.Type,
		booking.Status,
		booking.ReturnAttendanceID,
		booking.Observation,
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *bookingRepository) FindConflicts(ctx context.Context, professionalID int64, date time.Time, spans []model.Span, excludeID *int64) ([]*model.Booking, error) {
	if len(spans) == 0 {
		return nil, nil
	}

	starts := make([]string, 0, len(spans))
	for _, s := range spans {
		starts = append(starts, s.Start)
	}

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE professional_id = $1
		AND date = $2
		AND start_label = ANY($3)
		AND disabled_at IS NULL
	`
	args := []interface{}{professionalID, model.DateOnly(date), pq.Array(starts)}

	if excludeID != nil {
		query += " AND id != $4 AND (related_booking_id IS NULL OR related_booking_id != $4)"
		args = append(args, *excludeID)
	}

	var conflicts []*model.Booking
	err := r.db.SelectContext(ctx, &conflicts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return conflicts, nil
}

func (r *bookingRepository) CancelChain(ctx context.Context, primaryID int64, at time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET disabled_at = $1, updated_at = $1
		WHERE (id = $2 OR related_booking_id = $2)
		AND disabled_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, at, primaryID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel booking chain: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
