package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/rmaffei/scheduling-api/internal/model"
)

func (r *patientRepository) Get(ctx context.Context, id int64) (*model.Patient, error) {
	query := `
		SELECT id, name, phone, email
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Patient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, name, phone, email
		FROM patients
		WHERE id = ANY($1)
	`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) OverdueDays(ctx context.Context, patientID int64) (int, error) {
	// Oldest open invoice wins; the billing module owns the table.
	query := `
		SELECT COALESCE(MAX(EXTRACT(DAY FROM NOW() - due_date)::int), 0)
		FROM invoices
		WHERE patient_id = $1
		AND paid_at IS NULL
		AND due_date < NOW()
	`
	var days int
	err := r.db.GetContext(ctx, &days, query, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to get overdue days: %w", err)
	}
	return days, nil
}
