package storage

import (
	"context"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

const staffColumns = `id, salon_id, name, timezone, is_active`

func (s *Store) GetStaff(ctx context.Context, staffID string) (model.Staff, error) {
	return getStaff(ctx, s.pool, staffID, false)
}

// LockStaff loads the staff row FOR UPDATE, serializing calendar writes for that staff member.
func (t *Tx) LockStaff(ctx context.Context, staffID string) (model.Staff, error) {
	return getStaff(ctx, t.tx, staffID, true)
}

func getStaff(ctx context.Context, q querier, staffID string, forUpdate bool) (model.Staff, error) {
	sql := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var st model.Staff
	err := q.QueryRow(ctx, sql, staffID).Scan(&st.ID, &st.SalonID, &st.Name, &st.Timezone, &st.IsActive)
	if err != nil {
		return model.Staff{}, translate(err, "staff "+staffID)
	}
	return st, nil
}

// UpsertStaff writes the local replica of a staff directory entry.
func (s *Store) UpsertStaff(ctx context.Context, st model.Staff) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staff (id, salon_id, name, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET salon_id = EXCLUDED.salon_id,
			name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, st.ID, st.SalonID, st.Name, st.Timezone, st.IsActive)
	return translate(err, "upsert staff "+st.ID)
}
