package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonease/services/availability-service/internal/model"
	"github.com/segmentio/kafka-go"
)

// TopicStaffUpserted carries staff directory changes from the salon management service.
const TopicStaffUpserted = "salon.staff.upserted.v1"

type StaffWriter interface {
	UpsertStaff(ctx context.Context, st model.Staff) error
}

type staffEvent struct {
	StaffID  string `json:"staff_id"`
	SalonID  string `json:"salon_id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	IsActive *bool  `json:"is_active"`
}

// StaffHandler keeps the local staff directory in sync with staff events.
func StaffHandler(store StaffWriter) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt staffEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("%w: decode staff event: %v", ErrMalformedEvent, err)
		}
		st := model.Staff{
			ID:       strings.TrimSpace(evt.StaffID),
			SalonID:  strings.TrimSpace(evt.SalonID),
			Name:     strings.TrimSpace(evt.Name),
			Timezone: strings.TrimSpace(evt.Timezone),
			IsActive: evt.IsActive == nil || *evt.IsActive,
		}
		if st.ID == "" || st.SalonID == "" {
			return fmt.Errorf("%w: staff event missing staff_id or salon_id", ErrMalformedEvent)
		}
		if st.Timezone == "" {
			st.Timezone = "UTC"
		}
		if _, err := time.LoadLocation(st.Timezone); err != nil {
			return fmt.Errorf("%w: staff %s has unknown timezone %q: %v", ErrMalformedEvent, st.ID, st.Timezone, err)
		}
		return store.UpsertStaff(ctx, st)
	}
}
