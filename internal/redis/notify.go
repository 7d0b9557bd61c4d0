package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChangeEvent is the payload published on the per-clinic channel after every
// appointment write so queue viewers refresh instead of polling.
type ChangeEvent struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointment_id"`
	ClinicID      string `json:"clinic_id"`
	DoctorID      string `json:"doctor_id,omitempty"`
	Date          string `json:"date"`
	Status        string `json:"status"`
	TokenNumber   *int   `json:"token_number,omitempty"`
}

// ChannelFor is the per-clinic pub/sub channel carrying appointment change
// events.
func ChannelFor(clinicID uuid.UUID) string {
	return fmt.Sprintf("clinic:%s:appointments", clinicID)
}

// ChangeFeed publishes and subscribes appointment change events over Redis
// pub/sub, scoped by clinic.
type ChangeFeed struct {
	client *redis.Client
}

func NewChangeFeed(client *redis.Client) *ChangeFeed {
	return &ChangeFeed{client: client}
}

func (f *ChangeFeed) PublishChange(ctx context.Context, clinicID uuid.UUID, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, ChannelFor(clinicID), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription for one clinic's change events. The caller
// must Close the returned PubSub when the view is torn down.
func (f *ChangeFeed) Subscribe(ctx context.Context, clinicID uuid.UUID) *redis.PubSub {
	return f.client.Subscribe(ctx, ChannelFor(clinicID))
}

// Decode unmarshals one pub/sub message back into a change event.
func Decode(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	return ev, nil
}
