package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGridQueryWeekStart(t *testing.T) {
	// 2026-08-26 is a Wednesday; the week starts on Sunday the 23rd.
	q := GridQuery{AnchorDate: time.Date(2026, 8, 26, 15, 42, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), q.WeekStart())

	// A Sunday anchor is its own week start.
	q = GridQuery{AnchorDate: time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), q.WeekStart())
}

func TestWeekGridCellDefaultsToUnavailable(t *testing.T) {
	grid := &WeekGrid{Cells: map[string]GridCell{}}
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	cell := grid.Cell(day, "08:00")
	assert.Equal(t, CellStateUnavailable, cell.State)
	assert.False(t, cell.Draggable())

	grid.Cells[CellKey(day, "08:00")] = GridCell{State: CellStateBooked}
	assert.True(t, grid.Cell(day, "08:00").Draggable())
}

func TestGridCellSerializesLabel(t *testing.T) {
	cell := GridCell{
		State: CellStateBooked,
		Label: CellLabel{PatientName: "Ana Souza", Type: BookingTypeAttendance},
	}

	raw, err := json.Marshal(cell)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"label"`)
	assert.Contains(t, string(raw), "Ana Souza")

	raw, err = json.Marshal(GridCell{State: CellStateAvailable})
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"label"`)
}

func TestNewCellLabel(t *testing.T) {
	patient := &Patient{ID: 7, Name: "Ana Souza", Phone: "11 99999-0000"}
	booking := &Booking{Type: BookingTypeAttendance, Observation: strings.Repeat("x", 60)}

	label := NewCellLabel(booking, patient)
	assert.Equal(t, "Ana Souza", label.PatientName)
	assert.Equal(t, "11 99999-0000", label.Phone)
	assert.Len(t, label.Observation, 43)
	assert.True(t, strings.HasSuffix(label.Observation, "..."))

	contact := &Booking{Type: BookingTypeAttendance, ContactName: "João", ContactPhone: "11 98888-0000"}
	label = NewCellLabel(contact, nil)
	assert.Equal(t, "João", label.PatientName)
	assert.Equal(t, "11 98888-0000", label.Phone)
}
