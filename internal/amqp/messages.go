package amqp

import (
	"encoding/json"
	"time"

	"finbook/internal/core"
)

// TransactionSyncMessage asks the sync worker to mirror one transaction.
// It carries only the kind and row id; the worker fetches the full row from
// the store so the message can never go stale.
type TransactionSyncMessage struct {
	Kind      core.Kind `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(kind core.Kind, id int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
