package model

import (
	"time"
)

type CellState string

const (
	// CellStateUnavailable means the label is outside the day's template.
	CellStateUnavailable CellState = "unavailable"
	CellStateAvailable   CellState = "available"
	CellStateBooked      CellState = "booked"
)

const observationPreviewLen = 40

// GridQuery identifies the professional and week a grid is built for. It is
// passed explicitly into every grid call instead of living in shared state.
type GridQuery struct {
	ProfessionalID int64
	AnchorDate     time.Time
}

// WeekStart returns the Sunday of the anchor date's week, midnight UTC.
func (q GridQuery) WeekStart() time.Time {
	d := DateOnly(q.AnchorDate)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// CellLabel carries the display-only strings a cell renders with.
type CellLabel struct {
	PatientName string      `json:"patient_name,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Type        BookingType `json:"type,omitempty"`
	Observation string      `json:"observation,omitempty"`
}

// GridCell is the projection of one (day, time) pair. It is recomputed on
// every refresh and never a source of truth.
type GridCell struct {
	State      CellState   `json:"state"`
	Booking    *Booking    `json:"booking,omitempty"`
	Attendance *Attendance `json:"attendance,omitempty"`
	Label      CellLabel   `json:"label"`
}

// Draggable reports whether the cell's booking may be picked up for a
// reschedule. Only occupied cells are draggable, and an occupied drop target
// refuses the drop.
func (c GridCell) Draggable() bool {
	return c.State == CellStateBooked
}

// WeekGrid is a rendered week for one professional: ordered row labels, the
// per-day span templates, and a cell lookup.
type WeekGrid struct {
	ProfessionalID int64               `json:"professional_id"`
	WeekStart      time.Time           `json:"week_start"`
	TimeLabels     []string            `json:"time_labels"`
	Days           [7][]Span           `json:"days"`
	Cells          map[string]GridCell `json:"cells"`
}

// CellKey builds the map key for a (day, label) pair.
func CellKey(day time.Time, label string) string {
	return DateOnly(day).Format("2006-01-02") + "|" + label
}

// Cell returns the projection for a (day, label) pair. Pairs never written
// into the map are outside the template and report as unavailable.
func (g *WeekGrid) Cell(day time.Time, label string) GridCell {
	if c, ok := g.Cells[CellKey(day, label)]; ok {
		return c
	}
	return GridCell{State: CellStateUnavailable}
}

// NewCellLabel derives the display strings for an occupied cell.
func NewCellLabel(b *Booking, patient *Patient) CellLabel {
	l := CellLabel{Type: b.Type}
	if patient != nil {
		l.PatientName = patient.Name
		l.Phone = patient.Phone
	} else {
		l.PatientName = b.ContactName
		l.Phone = b.ContactPhone
	}
	l.Observation = b.Observation
	if len(l.Observation) > observationPreviewLen {
		l.Observation = l.Observation[:observationPreviewLen] + "..."
	}
	return l
}
