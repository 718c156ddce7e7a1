package amqp

import (
	"encoding/json"
	"time"
)

// Mutation operations carried in LedgerMutationMessage.
const (
	OpAppend        = "append"
	OpEdit          = "edit"
	OpDelete        = "delete"
	OpImportAppend  = "import_append"
	OpImportReplace = "import_replace"
)

// LedgerMutationMessage tells the worker that a period's data changed and
// its report artifacts should be regenerated. Version is the token of the
// snapshot the write was based on (empty for appends, which read nothing);
// the worker never acts on it and always reloads the data itself.
type LedgerMutationMessage struct {
	Operation string    `json:"operation"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerMutationMessage creates a mutation message for the given period.
func NewLedgerMutationMessage(operation string, year, month int, version string) *LedgerMutationMessage {
	return &LedgerMutationMessage{
		Operation: operation,
		Year:      year,
		Month:     month,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerMutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMutationMessageFromJSON creates a message from JSON bytes.
func LedgerMutationMessageFromJSON(data []byte) (*LedgerMutationMessage, error) {
	var msg LedgerMutationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
