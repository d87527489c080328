package grid

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/internal/repository"
	"github.com/rmaffei/scheduling-api/pkg/logger"
	"github.com/rmaffei/scheduling-api/pkg/metrics"
)

const daysPerWeek = 7

// Service builds the weekly availability grid: the set of bookable time
// labels for a professional and the occupancy of every (day, time) cell.
type Service struct {
	templates   repository.TemplateRepository
	bookings    repository.BookingRepository
	attendances repository.AttendanceRepository
	patients    repository.PatientRepository
	cache       *cache.Cache
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewService(
	templates repository.TemplateRepository,
	bookings repository.BookingRepository,
	attendances repository.AttendanceRepository,
	patients repository.PatientRepository,
	templateTTL time.Duration,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		templates:   templates,
		bookings:    bookings,
		attendances: attendances,
		patients:    patients,
		cache:       cache.New(templateTTL, 2*templateTTL),
		metrics:     m,
		logger:      l,
	}
}

// BuildWeek renders the grid for the week containing q.AnchorDate. An empty
// template is not an error: the grid comes back with no time labels, which
// renders as "no schedule configured" rather than "all slots booked".
func (s *Service) BuildWeek(ctx context.Context, q model.GridQuery) (*model.WeekGrid, error) {
	start := time.Now()

	template, err := s.weekTemplate(ctx, q.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load week template: %w", err)
	}

	weekStart := q.WeekStart()
	weekEnd := weekStart.AddDate(0, 0, daysPerWeek)

	bookings, err := s.bookings.ListRange(ctx, q.ProfessionalID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	attendances, err := s.attendances.ListRange(ctx, q.ProfessionalID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}

	patientsByID, err := s.patientIndex(ctx, bookings)
	if err != nil {
		return nil, err
	}

	grid := &model.WeekGrid{
		ProfessionalID: q.ProfessionalID,
		WeekStart:      weekStart,
		TimeLabels:     template.Labels(),
		Days:           template.Days,
		Cells:          make(map[string]model.GridCell),
	}

	// Every in-template cell starts out available.
	for day := 0; day < daysPerWeek; day++ {
		date := weekStart.AddDate(0, 0, day)
		for _, span := range template.SpansFor(date.Weekday()) {
			grid.Cells[model.CellKey(date, span.Start)] = model.GridCell{State: model.CellStateAvailable}
		}
	}

	attendanceByBooking := make(map[int64]*model.Attendance, len(attendances))
	for _, a := range attendances {
		if a.BookingID != nil {
			attendanceByBooking[*a.BookingID] = a
		}
	}

	// Occupancy: at most one non-cancelled booking per (date, start).
	for _, b := range bookings {
		if b.IsCancelled() || b.Status == model.BookingStatusUnset {
			continue
		}
		key := model.CellKey(b.Day(), b.Start)
		if existing, ok := grid.Cells[key]; ok && existing.State == model.CellStateBooked {
			s.logger.Warn("duplicate booking in cell",
				"professional_id", q.ProfessionalID,
				"date", b.Day().Format("2006-01-02"),
				"start", b.Start,
				"booking_id", b.ID)
			continue
		}

		var patient *model.Patient
		if b.PatientID != nil {
			patient = patientsByID[*b.PatientID]
		}
		grid.Cells[key] = model.GridCell{
			State:      model.CellStateBooked,
			Booking:    b,
			Attendance: attendanceByBooking[b.ID],
			Label:      model.NewCellLabel(b, patient),
		}
	}

	if s.metrics != nil {
		s.metrics.GridBuildsTotal.Inc()
		s.metrics.GridBuildLatency.Observe(time.Since(start).Seconds())
	}
	return grid, nil
}

// DaySpans returns the template spans for the weekday of the given date,
// which is what the reservation algorithm walks.
func (s *Service) DaySpans(ctx context.Context, professionalID int64, date time.Time) ([]model.Span, error) {
	template, err := s.weekTemplate(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load week template: %w", err)
	}
	return template.SpansFor(date.Weekday()), nil
}

func (s *Service) weekTemplate(ctx context.Context, professionalID int64) (*model.WeekTemplate, error) {
	key := fmt.Sprintf("template:%d", professionalID)
	if cached, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.TemplateCacheHits.Inc()
		}
		return cached.(*model.WeekTemplate), nil
	}

	template, err := s.templates.GetWeekTemplate(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TemplateCacheMisses.Inc()
	}
	s.cache.SetDefault(key, template)
	return template, nil
}

func (s *Service) patientIndex(ctx context.Context, bookings []*model.Booking) (map[int64]*model.Patient, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, b := range bookings {
		if b.PatientID == nil {
			continue
		}
		if _, ok := seen[*b.PatientID]; ok {
			continue
		}
		seen[*b.PatientID] = struct{}{}
		ids = append(ids, *b.PatientID)
	}

	patients, err := s.patients.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	index := make(map[int64]*model.Patient, len(patients))
	for _, p := range patients {
		index[p.ID] = p
	}
	return index, nil
}
