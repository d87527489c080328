package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/internal/repository"
	"github.com/rmaffei/scheduling-api/internal/service/booking"
	"github.com/rmaffei/scheduling-api/internal/service/grid"
	"github.com/rmaffei/scheduling-api/internal/service/notification"
	"github.com/rmaffei/scheduling-api/pkg/errors"
	"github.com/rmaffei/scheduling-api/pkg/logger"
)

// State is the workflow view the operator is in.
type State string

const (
	StateSelectPatient State = "select_patient"
	StateConfigureSlot State = "configure_slot"
	StateLinkReturn    State = "link_return"
)

const advisoryFetchTimeout = 5 * time.Second

// Session is one operator's in-progress booking. Advisory fields are filled
// by background fetches and default to zero when those fail. Every access,
// including the advisory fetch, holds mu; handlers serialize through View.
type Session struct {
	ID          string
	State       State
	JustContact bool
	Draft       *model.Booking

	// Advisory, never blocking.
	OverdueDays      int
	LinkedAttendance *model.Attendance

	mu sync.Mutex
}

// SessionView is the snapshot handlers serialize. It is taken under the
// session lock, so JSON marshaling never reads the live struct while the
// advisory fetch is writing it.
type SessionView struct {
	ID               string            `json:"id"`
	State            State             `json:"state"`
	JustContact      bool              `json:"just_contact"`
	Draft            *model.Booking    `json:"draft"`
	OverdueDays      int               `json:"overdue_days"`
	LinkedAttendance *model.Attendance `json:"linked_attendance,omitempty"`
}

// View returns a consistent snapshot of the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SessionView{
		ID:               s.ID,
		State:            s.State,
		JustContact:      s.JustContact,
		OverdueDays:      s.OverdueDays,
		LinkedAttendance: s.LinkedAttendance,
	}
	if s.Draft != nil {
		draft := *s.Draft
		view.Draft = &draft
	}
	return view
}

// Service drives the multi-view booking workflow: patient selection, slot
// configuration, and optional return linkage, ending in a reservation.
type Service struct {
	sessions    *cache.Cache
	bookings    *booking.Service
	grid        *grid.Service
	attendances repository.AttendanceRepository
	patients    repository.PatientRepository
	notifier    notification.Service

	overdueLimitDays int
	logger           *logger.Logger
}

func NewService(
	bookings *booking.Service,
	gridSvc *grid.Service,
	attendances repository.AttendanceRepository,
	patients repository.PatientRepository,
	notifier notification.Service,
	sessionTTL time.Duration,
	overdueLimitDays int,
	l *logger.Logger,
) *Service {
	return &Service{
		sessions:         cache.New(sessionTTL, 2*sessionTTL),
		bookings:         bookings,
		grid:             gridSvc,
		attendances:      attendances,
		patients:         patients,
		notifier:         notifier,
		overdueLimitDays: overdueLimitDays,
		logger:           l,
	}
}

// OpenRequest seeds a new workflow session. Exactly one of BookingID or the
// cell fields is used; PatientID may pre-select the patient (e.g. when the
// workflow is opened from a patient record).
type OpenRequest struct {
	BookingID      *int64
	ProfessionalID int64
	Date           time.Time
	Start          string
	End            string
	PatientID      *int64
}

// Open starts a session. Re-opening an existing booking lands directly in
// ConfigureSlot and kicks off the advisory fetches; a fresh cell starts in
// SelectPatient unless the caller supplied the patient.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	session := &Session{
		ID:    uuid.New().String(),
		State: StateSelectPatient,
	}

	if req.BookingID != nil {
		existing, err := s.bookings.Get(ctx, *req.BookingID)
		if err != nil {
			return nil, err
		}
		draft := *existing
		session.Draft = &draft
		session.JustContact = existing.IsContactOnly()
		session.State = StateConfigureSlot

		if !session.JustContact && draft.PatientID != nil {
			s.fetchAdvisory(session)
		}
	} else {
		session.Draft = &model.Booking{
			ProfessionalID: req.ProfessionalID,
			Date:           model.DateOnly(req.Date),
			Start:          req.Start,
			End:            req.End,
			Type:           model.BookingTypeAttendance,
		}
		if req.PatientID != nil {
			patient, err := s.patients.Get(ctx, *req.PatientID)
			if err != nil {
				return nil, errors.NewNotFound("patient", err)
			}
			session.Draft.PatientID = &patient.ID
			session.State = StateConfigureSlot
		}
	}

	s.sessions.SetDefault(session.ID, session)
	return session, nil
}

// Get returns a live session.
func (s *Service) Get(sessionID string) (*Session, error) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, errors.NewNotFound("workflow session", nil)
	}
	return v.(*Session), nil
}

// SelectPatient links the draft to a patient record and clears any
// contact-only fields, then moves to slot configuration.
func (s *Service) SelectPatient(ctx context.Context, sessionID string, patientID int64) (*Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, errors.NewNotFound("patient", err)
	}

	session.mu.Lock()
	session.Draft.PatientID = &patient.ID
	session.Draft.ContactName = ""
	session.Draft.ContactPhone = ""
	session.JustContact = false
	session.State = StateConfigureSlot
	session.mu.Unlock()

	s.fetchAdvisory(session)
	return session, nil
}

// UseContact switches the session to contact-only mode: the draft is
// identified by name/phone alone and the patient link is cleared.
func (s *Service) UseContact(sessionID, name, phone string) (*Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if name == "" || phone == "" {
		return nil, errors.NewValidation("contact name and phone are both required")
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.Draft.PatientID = nil
	session.Draft.ContactName = name
	session.Draft.ContactPhone = phone
	session.JustContact = true
	session.State = StateConfigureSlot
	return session, nil
}

// SlotInput carries the slot configuration fields the operator can change.
// Nil pointers leave the draft value untouched.
type SlotInput struct {
	Date        *time.Time
	Start       *string
	End         *string
	RoomID      *int64
	Type        *model.BookingType
	Status      *model.BookingStatus
	Observation *string
}

// ConfigureSlot applies slot fields to the draft. Switching the type to
// return is rejected while no patient is linked and leaves the type as it
// was.
func (s *Service) ConfigureSlot(sessionID string, input SlotInput) (*Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != StateConfigureSlot {
		return nil, errors.NewValidation("select a patient or contact first")
	}

	if input.Type != nil && *input.Type == model.BookingTypeReturn && session.Draft.PatientID == nil {
		return nil, errors.NewValidation("a return booking requires a patient record")
	}

	if input.Date != nil {
		session.Draft.Date = model.DateOnly(*input.Date)
	}
	if input.Start != nil {
		session.Draft.Start = *input.Start
	}
	if input.End != nil {
		session.Draft.End = *input.End
	}
	if input.RoomID != nil {
		session.Draft.RoomID = input.RoomID
	}
	if input.Type != nil {
		session.Draft.Type = *input.Type
		if *input.Type != model.BookingTypeReturn {
			session.Draft.ReturnAttendanceID = nil
		}
	}
	if input.Status != nil {
		session.Draft.Status = *input.Status
	}
	if input.Observation != nil {
		session.Draft.Observation = *input.Observation
	}
	return session, nil
}

// ReturnCandidates moves the session into the return-linkage view and lists
// the patient's visits eligible to anchor the follow-up: return date on or
// after the booking's date and no return booking linked yet.
func (s *Service) ReturnCandidates(ctx context.Context, sessionID string) ([]*model.Attendance, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.Draft.Type != model.BookingTypeReturn {
		session.mu.Unlock()
		return nil, errors.NewValidation("the booking type is not a return")
	}
	if session.Draft.PatientID == nil {
		session.mu.Unlock()
		return nil, errors.NewValidation("a return booking requires a patient record")
	}
	patientID := *session.Draft.PatientID
	minDate := session.Draft.Date
	session.State = StateLinkReturn
	session.mu.Unlock()

	candidates, err := s.attendances.ListReturnCandidates(ctx, patientID, minDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list return candidates: %w", err)
	}
	return candidates, nil
}

// LinkReturn records the chosen prior visit and returns to slot
// configuration.
func (s *Service) LinkReturn(ctx context.Context, sessionID string, attendanceID int64) (*Session, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if session.State != StateLinkReturn {
		session.mu.Unlock()
		return nil, errors.NewValidation("the session is not linking a return")
	}
	patientID := session.Draft.PatientID
	bookingDate := session.Draft.Date
	session.mu.Unlock()

	candidates, err := s.attendances.ListReturnCandidates(ctx, *patientID, bookingDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list return candidates: %w", err)
	}
	var chosen *model.Attendance
	for _, c := range candidates {
		if c.ID == attendanceID {
			chosen = c
			break
		}
	}
	if chosen == nil {
		return nil, errors.NewValidation("the selected attendance is not eligible for a return booking")
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.Draft.ReturnAttendanceID = &chosen.ID
	session.State = StateConfigureSlot
	return session, nil
}

// Submit validates the draft and reserves its span. The patient's overdue
// status is re-checked at submit time; beyond the configured limit only a
// cancellation is allowed through.
func (s *Service) Submit(ctx context.Context, sessionID string) (*model.Booking, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	draft := *session.Draft
	session.mu.Unlock()

	if draft.Start == "" {
		return nil, errors.NewValidation("start time is required")
	}
	if draft.Type == model.BookingTypeReturn && draft.ReturnAttendanceID == nil {
		return nil, errors.NewValidation("link a prior attendance before saving a return booking")
	}

	if draft.PatientID != nil {
		days, err := s.patients.OverdueDays(ctx, *draft.PatientID)
		if err != nil {
			// Advisory only; an unreachable billing module must not
			// block the desk.
			s.logger.Error(err, "failed to fetch overdue days", "patient_id", *draft.PatientID)
			days = 0
		}
		if days > s.overdueLimitDays {
			return nil, errors.NewValidation(fmt.Sprintf(
				"patient has invoices %d days overdue; booking is blocked", days))
		}
	}

	daySpans, err := s.grid.DaySpans(ctx, draft.ProfessionalID, draft.Date)
	if err != nil {
		return nil, err
	}

	saved, err := s.bookings.Reserve(ctx, &draft, daySpans)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.Draft = saved
	session.mu.Unlock()

	s.notifyConfirmed(saved)
	return saved, nil
}

// CancelBooking flags the session's booking chain as cancelled and notifies
// the patient. Overdue status never blocks a cancellation.
func (s *Service) CancelBooking(ctx context.Context, sessionID string) (int64, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return 0, err
	}

	session.mu.Lock()
	draft := *session.Draft
	session.mu.Unlock()

	if draft.ID == 0 {
		return 0, errors.NewValidation("the booking has not been saved yet")
	}

	rows, err := s.bookings.Cancel(ctx, draft.ID)
	if err != nil {
		return 0, err
	}

	s.notifyCancelled(&draft)
	return rows, nil
}

// fetchAdvisory fills the session's overdue days and linked attendance in
// the background. Failures are swallowed to zero defaults; they never block
// the view.
func (s *Service) fetchAdvisory(session *Session) {
	session.mu.Lock()
	patientID := session.Draft.PatientID
	bookingID := session.Draft.ID
	session.mu.Unlock()

	if patientID == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), advisoryFetchTimeout)
		defer cancel()

		days, err := s.patients.OverdueDays(ctx, *patientID)
		if err != nil {
			s.logger.Warn("advisory overdue fetch failed", "patient_id", *patientID, "error", err.Error())
			days = 0
		}

		var attendance *model.Attendance
		if bookingID != 0 {
			attendance, err = s.attendances.GetByBooking(ctx, bookingID)
			if err != nil {
				s.logger.Warn("advisory attendance fetch failed", "booking_id", bookingID, "error", err.Error())
				attendance = nil
			}
		}

		session.mu.Lock()
		session.OverdueDays = days
		session.LinkedAttendance = attendance
		session.mu.Unlock()
	}()
}

func (s *Service) notifyConfirmed(b *model.Booking) {
	if s.notifier == nil {
		return
	}
	s.notify(b, s.notifier.BookingConfirmed)
}

func (s *Service) notifyCancelled(b *model.Booking) {
	if s.notifier == nil {
		return
	}
	s.notify(b, s.notifier.BookingCancelled)
}

func (s *Service) notify(b *model.Booking, send func(context.Context, *model.Booking, *model.Patient) error) {
	if b.PatientID == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), advisoryFetchTimeout)
		defer cancel()

		patient, err := s.patients.Get(ctx, *b.PatientID)
		if err != nil {
			s.logger.Warn("notification patient lookup failed", "patient_id", *b.PatientID, "error", err.Error())
			return
		}
		if err := send(ctx, b, patient); err != nil {
			s.logger.Warn("booking notification failed", "booking_id", b.ID, "error", err.Error())
		}
	}()
}
