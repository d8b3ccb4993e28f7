package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendora/internal/core"
)

// Event types double as routing keys.
const (
	EventHistorySaved    = "history.saved"
	EventReminderCreated = "reminder.created"
)

// Event announces a record that reached the local store. Exactly one of
// HistoryItem and Reminder is set, according to Type.
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	HistoryItem *core.HistoryItem `json:"historyItem,omitempty"`
	Reminder    *core.TaxReminder `json:"reminder,omitempty"`
}

func NewHistorySavedEvent(item core.HistoryItem) *Event {
	return &Event{
		ID:          uuid.NewString(),
		Type:        EventHistorySaved,
		Timestamp:   time.Now().UTC(),
		HistoryItem: &item,
	}
}

func NewReminderCreatedEvent(r core.TaxReminder) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      EventReminderCreated,
		Timestamp: time.Now().UTC(),
		Reminder:  &r,
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and checks that its payload matches its type.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventHistorySaved:
		if e.HistoryItem == nil {
			return nil, fmt.Errorf("event %s: missing historyItem", e.ID)
		}
	case EventReminderCreated:
		if e.Reminder == nil {
			return nil, fmt.Errorf("event %s: missing reminder", e.ID)
		}
	default:
		return nil, fmt.Errorf("event %s: unknown type %q", e.ID, e.Type)
	}
	return &e, nil
}
