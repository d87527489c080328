package model

import (
	"time"
)

type BookingType string

const (
	BookingTypeAttendance BookingType = "attendance"
	BookingTypeReturn     BookingType = "return"
)

type BookingStatus string

const (
	// BookingStatusUnset marks a grid cell with no booking in it.
	BookingStatusUnset     BookingStatus = ""
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Booking is one persisted (date, start) slot reservation. A multi-slot
// appointment is a chain of rows: the primary row (RelatedBookingID nil)
// followed by continuation rows pointing back at the primary's id.
type Booking struct {
	ID                 int64         `db:"id" json:"id"`
	ProfessionalID     int64         `db:"professional_id" json:"professional_id"`
	PatientID          *int64        `db:"patient_id" json:"patient_id,omitempty"`
	ContactName        string        `db:"contact_name" json:"contact_name,omitempty"`
	ContactPhone       string        `db:"contact_phone" json:"contact_phone,omitempty"`
	Date               time.Time     `db:"date" json:"date"`
	Start              string        `db:"start_label" json:"start"`
	End                string        `db:"end_label" json:"end"`
	RoomID             *int64        `db:"room_id" json:"room_id,omitempty"`
	Type               BookingType   `db:"type" json:"type"`
	Status             BookingStatus `db:"status" json:"status"`
	RelatedBookingID   *int64        `db:"related_booking_id" json:"related_booking_id,omitempty"`
	ReturnAttendanceID *int64        `db:"return_attendance_id" json:"return_attendance_id,omitempty"`
	Observation        string        `db:"observation" json:"observation,omitempty"`
	DisabledAt         *time.Time    `db:"disabled_at" json:"disabled_at,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// IsPrimary reports whether the row is the first of its span.
func (b *Booking) IsPrimary() bool {
	return b.RelatedBookingID == nil
}

func (b *Booking) IsCancelled() bool {
	return b.DisabledAt != nil
}

// IsContactOnly reports whether the booking has no linked patient record and
// is identified by name/phone alone.
func (b *Booking) IsContactOnly() bool {
	return b.PatientID == nil
}

// Day returns the booking date with the time-of-day stripped, which is how
// grid cells compare dates.
func (b *Booking) Day() time.Time {
	return DateOnly(b.Date)
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SlotTarget identifies the destination cell of a reschedule.
type SlotTarget struct {
	Date  time.Time `json:"date" binding:"required"`
	Start string    `json:"start" binding:"required"`
	End   string    `json:"end" binding:"required"`
}
