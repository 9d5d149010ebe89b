package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
)

const bookingColumns = `id::text, salon_id, staff_id, service_id, client_name, client_phone,
	appointment_start, duration_minutes, status, notes, COALESCE(rescheduled_from::text, ''),
	created_at, updated_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(
		&b.ID,
		&b.SalonID,
		&b.StaffID,
		&b.ServiceID,
		&b.ClientName,
		&b.ClientPhone,
		&b.AppointmentStart,
		&b.DurationMinutes,
		&status,
		&b.Notes,
		&b.RescheduledFrom,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

// ListBookings returns the staff member's bookings overlapping [from, to), optionally only
// those in a blocking status.
func (s *Store) ListBookings(ctx context.Context, staffID string, from, to time.Time, blockingOnly bool) ([]model.Booking, error) {
	return listBookings(ctx, s.pool, staffID, from, to, blockingOnly)
}

func (t *Tx) ListBlockingBookings(ctx context.Context, staffID string, from, to time.Time) ([]model.Booking, error) {
	return listBookings(ctx, t.tx, staffID, from, to, true)
}

// statusFilter is bound to $4 of the booking listing; nil matches every status.
func statusFilter(blockingOnly bool) []string {
	if !blockingOnly {
		return nil
	}
	return model.BlockingStatuses()
}

func listBookings(ctx context.Context, q querier, staffID string, from, to time.Time, blockingOnly bool) ([]model.Booking, error) {
	// Half-open overlap with [from, to): a booking ending exactly at from, or starting
	// exactly at to, is not returned.
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE staff_id = $1
			AND appointment_start < $3
			AND appointment_end > $2
			AND ($4::text[] IS NULL OR status = ANY($4))
		ORDER BY appointment_start ASC
	`, staffID, from, to, statusFilter(blockingOnly))
	if err != nil {
		return nil, translate(err, "list bookings")
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID))
	return b, translate(err, "booking "+bookingID)
}

func (t *Tx) GetBookingForUpdate(ctx context.Context, bookingID string) (model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
	return b, translate(err, "booking "+bookingID)
}

func (t *Tx) InsertBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	var rescheduledFrom *string
	if b.RescheduledFrom != "" {
		rescheduledFrom = &b.RescheduledFrom
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, salon_id, staff_id, service_id, client_name, client_phone,
			 appointment_start, appointment_end, duration_minutes, status, notes, rescheduled_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, b.ID, b.SalonID, b.StaffID, b.ServiceID, b.ClientName, b.ClientPhone,
		b.AppointmentStart, b.End(), b.DurationMinutes, string(b.Status), b.Notes, rescheduledFrom,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, translate(err, "insert booking")
	}
	return b, nil
}

func (t *Tx) UpdateBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus) (time.Time, error) {
	var updatedAt time.Time
	err := t.tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, bookingID, string(status)).Scan(&updatedAt)
	return updatedAt, translate(err, "update booking "+bookingID)
}

// LockIdempotencyKey claims key for the salon. When the key was already used it returns the
// booking created under it.
func (t *Tx) LockIdempotencyKey(ctx context.Context, salonID, key string) (string, bool, error) {
	bookingID, err := t.selectIdempotencyForUpdate(ctx, salonID, key)
	if err == nil {
		return bookingID, bookingID != "", nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (salon_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (salon_id, idempotency_key) DO NOTHING
	`, salonID, key)
	if err != nil {
		return "", false, err
	}

	bookingID, err = t.selectIdempotencyForUpdate(ctx, salonID, key)
	if err != nil {
		return "", false, err
	}
	return bookingID, bookingID != "", nil
}

func (t *Tx) FinalizeIdempotency(ctx context.Context, salonID, key, bookingID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = $3,
			updated_at = now()
		WHERE salon_id = $1 AND idempotency_key = $2
	`, salonID, key, bookingID)
	return err
}

func (t *Tx) selectIdempotencyForUpdate(ctx context.Context, salonID, key string) (string, error) {
	var bookingID string
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(booking_id::text, '')
		FROM booking_idempotency_keys
		WHERE salon_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, salonID, key).Scan(&bookingID)
	return bookingID, err
}
