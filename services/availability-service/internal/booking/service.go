// Package booking owns writes to a staff member's calendar: creating bookings, moving them
// through their lifecycle and maintaining availability rules. Every write takes the staff
// member's lock, re-validates against freshly loaded data inside a transaction and records
// an outbox event in that same transaction.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/locks"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/storage"
)

var (
	ErrInactiveStaff     = errors.New("staff member is not accepting bookings")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrIdempotencyKeyReused is returned when a key comes back with a different booking request.
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")
)

// Tx is the set of queries the service runs inside one transaction.
type Tx interface {
	LockStaff(ctx context.Context, staffID string) (model.Staff, error)
	ListRules(ctx context.Context, staffID string) ([]model.StaffAvailability, error)
	ListBlockingBookings(ctx context.Context, staffID string, from, to time.Time) ([]model.Booking, error)
	GetBookingForUpdate(ctx context.Context, bookingID string) (model.Booking, error)
	InsertBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus) (time.Time, error)
	LockIdempotencyKey(ctx context.Context, salonID, key string) (string, bool, error)
	FinalizeIdempotency(ctx context.Context, salonID, key, bookingID string) error
	UpsertRule(ctx context.Context, r model.StaffAvailability) (model.StaffAvailability, error)
	DeleteRule(ctx context.Context, staffID, ruleID string) error
	InsertEvent(ctx context.Context, evt outbox.Event) error
}

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (locks.Release, error)
}

type pgStore struct {
	store *storage.Store
}

// PostgresStore adapts the storage layer to Store.
func PostgresStore(s *storage.Store) Store {
	return pgStore{store: s}
}

func (p pgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return p.store.InTx(ctx, func(tx *storage.Tx) error { return fn(tx) })
}

type Service struct {
	store  Store
	engine *availability.Engine
	locker Locker
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithLocker serializes writes per staff member across replicas. Without it the staff row
// lock and the database exclusion constraint still prevent double booking.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, engine *availability.Engine, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, engine: engine, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withStaffLock runs fn while holding the distributed lock for staffID, when configured.
func (s *Service) withStaffLock(ctx context.Context, staffID string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	release, err := s.locker.Acquire(ctx, "staff:"+staffID)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("staff lock release failed", "err", err, "staff_id", staffID)
		}
	}()
	return fn()
}

// checkSlot re-runs the engine against the rules and bookings visible to tx. Bookings listed
// in ignore are treated as already released.
func (s *Service) checkSlot(ctx context.Context, tx Tx, staff model.Staff, start time.Time, minutes int, ignore string) error {
	rules, err := tx.ListRules(ctx, staff.ID)
	if err != nil {
		return err
	}
	end := start.Add(time.Duration(minutes) * time.Minute)
	bookings, err := tx.ListBlockingBookings(ctx, staff.ID, start, end)
	if err != nil {
		return err
	}
	if ignore != "" {
		kept := bookings[:0]
		for _, b := range bookings {
			if b.ID != ignore {
				kept = append(kept, b)
			}
		}
		bookings = kept
	}
	return s.engine.CheckSlot(staff.ID, start.In(staff.Location()), minutes, rules, bookings, s.now())
}

func insertEvent(ctx context.Context, tx Tx, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	return tx.InsertEvent(ctx, outbox.Event{
		AggregateType: "staff",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	})
}

func requireID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: %s is required", availability.ErrInvalidArgument, field)
	}
	return raw, nil
}

func requireUUID(field, raw string) (string, error) {
	raw, err := requireID(field, raw)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", fmt.Errorf("%w: %s must be a uuid", availability.ErrInvalidArgument, field)
	}
	return raw, nil
}

// conflictFromStore turns a database overlap rejection into the engine's conflict error.
func conflictFromStore(err error, start, end time.Time) error {
	if errors.Is(err, model.ErrConflict) {
		return &availability.ConflictError{Reason: availability.ReasonBookingOverlap, Start: start, End: end}
	}
	return err
}
