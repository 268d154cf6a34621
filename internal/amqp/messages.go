package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeKind names what part of a ledger changed.
type ChangeKind string

const (
	KindTransaction  ChangeKind = "transaction"
	KindRentalIncome ChangeKind = "rental_income"
	KindOwner        ChangeKind = "owner"
)

// LedgerChangeMessage announces a committed ledger write. It carries keys
// only; consumers reload current state from storage.
type LedgerChangeMessage struct {
	ID        string     `json:"id"`
	Kind      ChangeKind `json:"kind"`
	Operation string     `json:"operation"`
	UserID    string     `json:"userId"`
	Period    string     `json:"period,omitempty"`
	EntryIDs  []string   `json:"entryIds,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewLedgerChangeMessage stamps a new message with a fresh id and the current time.
func NewLedgerChangeMessage(kind ChangeKind, operation, userID, period string, entryIDs ...string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Operation: operation,
		UserID:    userID,
		Period:    period,
		EntryIDs:  entryIDs,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes a message and rejects ones without a
// user or kind.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Kind == "" {
		return nil, fmt.Errorf("ledger change message missing user or kind")
	}
	return &msg, nil
}
