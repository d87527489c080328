package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rmaffei/scheduling-api/internal/model"
)

type templateRow struct {
	ProfessionalID int64  `db:"professional_id"`
	Weekday        int    `db:"weekday"`
	StartLabel     string `db:"start_label"`
	EndLabel       string `db:"end_label"`
	Position       int    `db:"position"`
}

func (r *templateRepository) GetWeekTemplate(ctx context.Context, professionalID int64) (*model.WeekTemplate, error) {
	query := `
		SELECT professional_id, weekday, start_label, end_label, position
		FROM availability_templates
		WHERE professional_id = $1
		ORDER BY weekday ASC, position ASC
	`
	var rows []templateRow
	err := r.db.SelectContext(ctx, &rows, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get week template: %w", err)
	}

	template := &model.WeekTemplate{ProfessionalID: professionalID}
	for _, row := range rows {
		if row.Weekday < int(time.Sunday) || row.Weekday > int(time.Saturday) {
			return nil, fmt.Errorf("invalid weekday %d in template for professional %d", row.Weekday, professionalID)
		}
		template.Days[row.Weekday] = append(template.Days[row.Weekday], model.Span{
			Start: row.StartLabel,
			End:   row.EndLabel,
		})
	}
	return template, nil
}
