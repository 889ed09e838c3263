package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage asks the worker to mirror the local ledger to the remote
// store. It carries no transactions: the worker reads the current snapshot.
type LedgerSyncMessage struct {
	Reason    string    `json:"reason"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(reason string, count int) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Reason:    reason,
		Count:     count,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
