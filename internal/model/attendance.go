package model

import (
	"time"
)

// Attendance is the clinical visit record this service reads but never owns.
// The grid uses it to mark cells whose booking already has a visit, and the
// return workflow links follow-up bookings to one.
type Attendance struct {
	ID             int64      `db:"id" json:"id"`
	PatientID      int64      `db:"patient_id" json:"patient_id"`
	ProfessionalID int64      `db:"professional_id" json:"professional_id"`
	BookingID      *int64     `db:"booking_id" json:"booking_id,omitempty"`
	Date           time.Time  `db:"date" json:"date"`
	ReturnDate     *time.Time `db:"return_date" json:"return_date,omitempty"`
}

// EligibleForReturn reports whether the visit can anchor a return booking
// dated on the given day: its scheduled return date must be on/after it.
func (a *Attendance) EligibleForReturn(bookingDate time.Time) bool {
	if a.ReturnDate == nil {
		return false
	}
	return !DateOnly(*a.ReturnDate).Before(DateOnly(bookingDate))
}
