package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/rmaffei/scheduling-api/config"
	"github.com/rmaffei/scheduling-api/internal/model"
	"github.com/rmaffei/scheduling-api/pkg/logger"
)

// Service sends booking confirmations. Delivery is advisory: a failure is
// logged and never blocks the workflow.
type Service interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking, patient *model.Patient) error
	BookingCancelled(ctx context.Context, booking *model.Booking, patient *model.Patient) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewService(cfg config.EmailConfig, l *logger.Logger) Service {
	return &emailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: l,
	}
}

func (s *emailService) BookingConfirmed(ctx context.Context, booking *model.Booking, patient *model.Patient) error {
	subject := "Appointment confirmed"
	body := fmt.Sprintf(
		"Your appointment is scheduled for %s between %s and %s.",
		booking.Date.Format("02/01/2006"), booking.Start, booking.End,
	)
	return s.send(patient, subject, body)
}

func (s *emailService) BookingCancelled(ctx context.Context, booking *model.Booking, patient *model.Patient) error {
	subject := "Appointment cancelled"
	body := fmt.Sprintf(
		"Your appointment on %s at %s has been cancelled.",
		booking.Date.Format("02/01/2006"), booking.Start,
	)
	return s.send(patient, subject, body)
}

func (s *emailService) send(patient *model.Patient, subject, body string) error {
	if patient == nil || patient.Email == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", patient.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
