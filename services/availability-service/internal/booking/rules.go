package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/outbox"
)

type availabilityEvent struct {
	StaffID string `json:"staff_id"`
	SalonID string `json:"salon_id"`
	RuleID  string `json:"rule_id"`
	Action  string `json:"action"`
}

// SaveRule creates a rule, or updates it when r.ID names an existing rule of the same staff
// member. Rules of the same type may not overlap on the same weekday; time-off is expected
// to sit inside availability.
func (s *Service) SaveRule(ctx context.Context, r model.StaffAvailability) (model.StaffAvailability, error) {
	staffID, err := requireID("staff_id", r.StaffID)
	if err != nil {
		return model.StaffAvailability{}, err
	}
	r.StaffID = staffID
	if r.ID != "" {
		if r.ID, err = requireUUID("id", r.ID); err != nil {
			return model.StaffAvailability{}, err
		}
	}
	if err := availability.ValidateRule(r); err != nil {
		return model.StaffAvailability{}, err
	}

	var saved model.StaffAvailability
	err = s.withStaffLock(ctx, staffID, func() error {
		return s.store.InTx(ctx, func(tx Tx) error {
			staff, err := tx.LockStaff(ctx, staffID)
			if err != nil {
				return err
			}
			existing, err := tx.ListRules(ctx, staffID)
			if err != nil {
				return err
			}

			action := "created"
			if r.ID != "" {
				if !containsRule(existing, r.ID) {
					return fmt.Errorf("rule %s: %w", r.ID, model.ErrNotFound)
				}
				action = "updated"
			} else {
				r.ID = uuid.NewString()
			}
			if clash, ok := overlappingRule(existing, r); ok {
				return fmt.Errorf("%w: %s rule %s-%s overlaps rule %s", model.ErrConflict, r.Type,
					model.FormatClock(r.StartMinute), model.FormatClock(r.EndMinute), clash.ID)
			}

			r.SalonID = staff.SalonID
			saved, err = tx.UpsertRule(ctx, r)
			if err != nil {
				return err
			}
			return insertEvent(ctx, tx, staffID, outbox.EventAvailabilityChanged, availabilityEvent{
				StaffID: staffID, SalonID: staff.SalonID, RuleID: saved.ID, Action: action,
			})
		})
	})
	if err != nil {
		return model.StaffAvailability{}, err
	}
	return saved, nil
}

func (s *Service) DeleteRule(ctx context.Context, staffID, ruleID string) error {
	staffID, err := requireID("staff_id", staffID)
	if err != nil {
		return err
	}
	if ruleID, err = requireUUID("id", ruleID); err != nil {
		return err
	}
	return s.withStaffLock(ctx, staffID, func() error {
		return s.store.InTx(ctx, func(tx Tx) error {
			staff, err := tx.LockStaff(ctx, staffID)
			if err != nil {
				return err
			}
			if err := tx.DeleteRule(ctx, staffID, ruleID); err != nil {
				return err
			}
			return insertEvent(ctx, tx, staffID, outbox.EventAvailabilityChanged, availabilityEvent{
				StaffID: staffID, SalonID: staff.SalonID, RuleID: ruleID, Action: "deleted",
			})
		})
	})
}

func containsRule(rules []model.StaffAvailability, id string) bool {
	for _, r := range rules {
		if r.ID == id {
			return true
		}
	}
	return false
}

func overlappingRule(rules []model.StaffAvailability, r model.StaffAvailability) (model.StaffAvailability, bool) {
	for _, other := range rules {
		if other.ID == r.ID || other.DayOfWeek != r.DayOfWeek || other.Type != r.Type {
			continue
		}
		if r.StartMinute < other.EndMinute && other.StartMinute < r.EndMinute {
			return other, true
		}
	}
	return model.StaffAvailability{}, false
}
