package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	MovementGUID string    `json:"movement_guid,omitempty"`
	AccountGUID  string    `json:"account_guid,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Status       string    `json:"status"`
	Details      any       `json:"details,omitempty"`
}

// Logger emits one structured line per money-moving event so operations can
// reconstruct what the engines did without reading either store.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogMovement(eventType, movementGUID, accountGUID string, amount decimal.Decimal) {
	a.log(Event{
		Timestamp:    time.Now(),
		EventType:    eventType,
		MovementGUID: movementGUID,
		AccountGUID:  accountGUID,
		Amount:       amount.String(),
		Status:       "SUCCESS",
	})
}

func (a *Logger) LogError(eventType, accountGUID string, err error) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   eventType,
		AccountGUID: accountGUID,
		Status:      "FAILED",
		Details:     map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
