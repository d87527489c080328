package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/internal/repository"
	"github.com/rmaffei/scheduling-api/pkg/errors"
	"github.com/rmaffei/scheduling-api/pkg/logger"
	"github.com/rmaffei/scheduling-api/pkg/metrics"
)

// MsgSlotOccupied is the fixed warning shown when a reschedule lands on an
// occupied cell.
const MsgSlotOccupied = "time slot occupied for this professional"

// Service owns slot reservations: computing the contiguous span of slots for
// a booking request, checking it against existing bookings, and committing
// the whole span atomically.
type Service struct {
	repo    repository.BookingRepository
	outbox  repository.OutboxRepository
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.BookingRepository, outbox repository.OutboxRepository, m *metrics.Metrics, l *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		outbox:  outbox,
		metrics: m,
		logger:  l,
	}
}

// Reserve validates the draft against the day's template spans, conflict
// checks the full span, and commits it. New drafts (ID zero) may cover
// several contiguous slots; the rows are written in one transaction with the
// continuations chained to the primary's id, so a failure leaves nothing
// behind. Editing an existing booking updates its single row in place.
func (s *Service) Reserve(ctx context.Context, draft *model.Booking, daySpans []model.Span) (*model.Booking, error) {
	if draft.Start == "" {
		return nil, errors.NewValidation("start time is required")
	}

	startIdx := model.SpanIndex(daySpans, draft.Start)
	if startIdx < 0 {
		return nil, errors.NewValidation(fmt.Sprintf("start time %s is outside the professional's schedule", draft.Start))
	}
	endIdx := model.SpanEndIndex(daySpans, draft.End)
	if endIdx < startIdx {
		return nil, errors.NewValidation("end time must not precede start time")
	}

	span := daySpans[startIdx : endIdx+1]
	if draft.ID != 0 && len(span) > 1 {
		return nil, errors.NewValidation("an existing booking cannot be extended; book the extra slots separately")
	}
	if draft.Status == model.BookingStatusUnset {
		draft.Status = model.BookingStatusScheduled
	}
	draft.Date = model.DateOnly(draft.Date)

	var excludeID *int64
	if draft.ID != 0 {
		excludeID = &draft.ID
	}
	if err := s.checkAvailability(ctx, draft.ProfessionalID, draft.Date, span, excludeID, "reserve"); err != nil {
		return nil, err
	}

	if draft.ID != 0 {
		draft.Start = span[0].Start
		draft.End = span[0].End
		if err := s.repo.Update(ctx, draft); err != nil {
			return nil, fmt.Errorf("failed to update booking: %w", err)
		}
		s.publish(ctx, model.EventBookingUpdated, draft)
		return draft, nil
	}

	primary := cloneForSlot(draft, span[0])
	continuations := make([]*model.Booking, 0, len(span)-1)
	for _, sp := range span[1:] {
		continuations = append(continuations, cloneForSlot(draft, sp))
	}

	if err := s.repo.ReserveSpan(ctx, primary, continuations); err != nil {
		return nil, fmt.Errorf("failed to reserve span: %w", err)
	}

	if s.metrics != nil {
		kind := "single"
		if len(continuations) > 0 {
			kind = "multi"
		}
		s.metrics.ReservationsTotal.WithLabelValues(kind).Inc()
		s.metrics.ReservationRows.Observe(float64(len(span)))
	}
	s.logger.Info("reserved span",
		"booking_id", primary.ID,
		"professional_id", primary.ProfessionalID,
		"date", primary.Date.Format("2006-01-02"),
		"rows", len(span))
	s.publish(ctx, model.EventBookingCreated, primary)

	return primary, nil
}

// Get returns one booking row.
func (s *Service) Get(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NewNotFound("booking", err)
	}
	return b, nil
}

// List returns the professional's bookings in a date range.
func (s *Service) List(ctx context.Context, professionalID int64, from, to time.Time) ([]*model.Booking, error) {
	bookings, err := s.repo.ListRange(ctx, professionalID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// Chain returns the primary row and its continuations for a primary id.
func (s *Service) Chain(ctx context.Context, primaryID int64) ([]*model.Booking, error) {
	chain, err := s.repo.Chain(ctx, primaryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking chain: %w", err)
	}
	return chain, nil
}

// Reschedule moves a booking row to the target cell. The drop is refused
// with the fixed occupied warning when the target already holds another
// non-cancelled booking; nothing changes on refusal, and callers re-fetch the
// grid after success rather than mutating locally.
func (s *Service) Reschedule(ctx context.Context, id int64, target model.SlotTarget) (*model.Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.NewNotFound("booking", err)
	}
	if b.IsCancelled() {
		return nil, errors.NewValidation("a cancelled booking cannot be rescheduled")
	}

	span := []model.Span{{Start: target.Start, End: target.End}}
	conflicts, err := s.repo.FindConflicts(ctx, b.ProfessionalID, target.Date, span, &id)
	if err != nil {
		return nil, fmt.Errorf("failed to check target availability: %w", err)
	}
	if len(conflicts) > 0 {
		if s.metrics != nil {
			s.metrics.ConflictsTotal.WithLabelValues("reschedule").Inc()
		}
		return nil, errors.NewConflict(MsgSlotOccupied)
	}

	b.Date = model.DateOnly(target.Date)
	b.Start = target.Start
	b.End = target.End
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to reschedule booking: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ReschedulesTotal.Inc()
	}
	s.logger.Info("rescheduled booking",
		"booking_id", b.ID,
		"date", b.Date.Format("2006-01-02"),
		"start", b.Start)
	s.publish(ctx, model.EventBookingRescheduled, b)

	return b, nil
}

// Cancel flags the whole chain of the booking with a cancellation timestamp.
// The operation is driven from the primary row; a continuation id resolves to
// its primary first. Rows are never deleted.
func (s *Service) Cancel(ctx context.Context, id int64) (int64, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, errors.NewNotFound("booking", err)
	}
	if b.IsCancelled() {
		return 0, errors.NewValidation("booking is already cancelled")
	}

	primaryID := b.ID
	if b.RelatedBookingID != nil {
		primaryID = *b.RelatedBookingID
	}

	rows, err := s.repo.CancelChain(ctx, primaryID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cancel booking: %w", err)
	}

	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
		s.metrics.CancelledChainRows.Observe(float64(rows))
	}
	s.logger.Info("cancelled booking chain", "primary_id", primaryID, "rows", rows)
	s.publish(ctx, model.EventBookingCancelled, b)

	return rows, nil
}

// checkAvailability runs the pre-commit conflict check for the full span.
// Any overlap aborts the operation with the conflict detail; no rows are
// written.
func (s *Service) checkAvailability(ctx context.Context, professionalID int64, date time.Time, span []model.Span, excludeID *int64, operation string) error {
	conflicts, err := s.repo.FindConflicts(ctx, professionalID, date, span, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check availability: %w", err)
	}
	if len(conflicts) == 0 {
		return nil
	}

	if s.metrics != nil {
		s.metrics.ConflictsTotal.WithLabelValues(operation).Inc()
	}
	labels := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		labels = append(labels, c.Start)
	}
	return errors.NewConflict(fmt.Sprintf(
		"time slot %s already booked for this professional on %s",
		strings.Join(labels, ", "), model.DateOnly(date).Format("2006-01-02")))
}

func (s *Service) publish(ctx context.Context, eventType string, b *model.Booking) {
	event, err := model.NewOutboxEvent(eventType, b)
	if err != nil {
		s.logger.Error(err, "failed to build outbox event", "event_type", eventType)
		return
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to stage outbox event", "event_type", eventType, "booking_id", b.ID)
	}
}

func cloneForSlot(draft *model.Booking, span model.Span) *model.Booking {
	row := *draft
	row.ID = 0
	row.Start = span.Start
	row.End = span.End
	row.RelatedBookingID = nil
	return &row
}
