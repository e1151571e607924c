package consumer

import (
	"context"
	"encoding/json"
)

// Debezium operations.
const (
	OpCreate   = "c"
	OpUpdate   = "u"
	OpDelete   = "d"
	OpSnapshot = "r"
)

// DebeziumSource identifies where a change came from.
type DebeziumSource struct {
	Table string `json:"table"`
	TsMs  int64  `json:"ts_ms"`
}

// DebeziumPayload is the payload field of a Debezium CDC message. Row
// images stay raw; their shape depends on Source.Table.
type DebeziumPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source DebeziumSource  `json:"source"`
	Op     string          `json:"op"` // "c"=create, "u"=update, "d"=delete, "r"=snapshot
	TsMs   int64           `json:"ts_ms"`
}

// DebeziumMessage is the top-level Debezium CDC message envelope.
type DebeziumMessage struct {
	Payload DebeziumPayload `json:"payload"`
}

// Rows returns the non-null row images, before first.
func (p *DebeziumPayload) Rows() []json.RawMessage {
	var rows []json.RawMessage
	for _, raw := range []json.RawMessage{p.Before, p.After} {
		if len(raw) > 0 && string(raw) != "null" {
			rows = append(rows, raw)
		}
	}
	return rows
}

// CDCEventHandler processes a decoded Debezium CDC message.
type CDCEventHandler interface {
	HandleCDCEvent(ctx context.Context, event *DebeziumMessage) error
}

// CDCEventConsumer manages the Kafka consumer lifecycle.
type CDCEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}
