package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

func (s *Store) ListRules(ctx context.Context, staffID string) ([]model.StaffAvailability, error) {
	return listRules(ctx, s.pool, staffID)
}

func (t *Tx) ListRules(ctx context.Context, staffID string) ([]model.StaffAvailability, error) {
	return listRules(ctx, t.tx, staffID)
}

func listRules(ctx context.Context, q querier, staffID string) ([]model.StaffAvailability, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, staff_id, salon_id, day_of_week, start_minute, end_minute, type, created_at, updated_at
		FROM staff_availability
		WHERE staff_id = $1
		ORDER BY day_of_week, start_minute, type
	`, staffID)
	if err != nil {
		return nil, translate(err, "list rules")
	}
	defer rows.Close()

	var rules []model.StaffAvailability
	for rows.Next() {
		var r model.StaffAvailability
		var day int16
		var typ string
		if err := rows.Scan(&r.ID, &r.StaffID, &r.SalonID, &day, &r.StartMinute, &r.EndMinute, &typ, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.DayOfWeek = time.Weekday(day)
		r.Type = model.AvailabilityType(typ)
		rules = append(rules, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// UpsertRule inserts the rule or updates it in place when the id already exists.
func (t *Tx) UpsertRule(ctx context.Context, r model.StaffAvailability) (model.StaffAvailability, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO staff_availability (id, staff_id, salon_id, day_of_week, start_minute, end_minute, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET day_of_week = EXCLUDED.day_of_week,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			type = EXCLUDED.type,
			updated_at = now()
		WHERE staff_availability.staff_id = EXCLUDED.staff_id
		RETURNING created_at, updated_at
	`, r.ID, r.StaffID, r.SalonID, int16(r.DayOfWeek), r.StartMinute, r.EndMinute, string(r.Type)).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.StaffAvailability{}, translate(err, "upsert rule "+r.ID)
	}
	return r, nil
}

func (t *Tx) DeleteRule(ctx context.Context, staffID, ruleID string) error {
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM staff_availability
		WHERE id = $1 AND staff_id = $2
	`, ruleID, staffID)
	if err != nil {
		return translate(err, "delete rule "+ruleID)
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, "rule "+ruleID)
	}
	return nil
}
