package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rmaffei/scheduling-api/internal/model"
)

const attendanceColumns = `
	id, patient_id, professional_id, booking_id, date, return_date
`

func (r *attendanceRepository) ListRange(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE professional_id = $1
		AND date >= $2
		AND date < $3
		ORDER BY date ASC
	`
	var attendances []*model.Attendance
	err := r.db.SelectContext(ctx, &attendances, query, professionalID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}
	return attendances, nil
}

func (r *attendanceRepository) GetByBooking(ctx context.Context, bookingID int64) (*model.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE booking_id = $1
	`
	var attendance model.Attendance
	err := r.db.GetContext(ctx, &attendance, query, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance for booking: %w", err)
	}
	return &attendance, nil
}

func (r *attendanceRepository) ListReturnCandidates(ctx context.Context, patientID int64, minReturnDate time.Time) ([]*model.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances a
		WHERE a.patient_id = $1
		AND a.return_date IS NOT NULL
		AND a.return_date >= $2
		AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.return_attendance_id = a.id
			AND b.disabled_at IS NULL
		)
		ORDER BY a.return_date ASC
	`
	var attendances []*model.Attendance
	err := r.db.SelectContext(ctx, &attendances, query, patientID, model.DateOnly(minReturnDate))
	if err != nil {
		return nil, fmt.Errorf("failed to list return candidates: %w", err)
	}
	return attendances, nil
}
