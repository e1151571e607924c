package consumer

import (
	"testing"
)

func TestDecodeMessage_Envelope(t *testing.T) {
	value := []byte(`{"schema":{},"payload":{"before":null,"after":{"id":7,"follower_id":"a","following_id":"b"},"source":{"table":"follows"},"op":"c","ts_ms":1700000000000}}`)

	event, err := decodeMessage(value)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if event.Payload.Source.Table != "follows" || event.Payload.Op != OpCreate {
		t.Errorf("unexpected payload %+v", event.Payload)
	}
	rows := event.Payload.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected only the after image, got %d rows", len(rows))
	}
}

func TestDecodeMessage_BarePayload(t *testing.T) {
	value := []byte(`{"before":{"id":"r1","event_id":"e1"},"after":{"id":"r1","event_id":"e1"},"source":{"table":"event_registrations"},"op":"u"}`)

	event, err := decodeMessage(value)
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}
	if event.Payload.Source.Table != "event_registrations" {
		t.Errorf("expected event_registrations, got %q", event.Payload.Source.Table)
	}
	if len(event.Payload.Rows()) != 2 {
		t.Errorf("expected before and after rows")
	}
}

func TestDecodeMessage_Tombstone(t *testing.T) {
	for _, value := range [][]byte{nil, []byte(`{"schema":null,"payload":null}`)} {
		event, err := decodeMessage(value)
		if err != nil || event != nil {
			t.Errorf("expected tombstone to decode to nil, got %+v, %v", event, err)
		}
	}
}

func TestDecodeMessage_Invalid(t *testing.T) {
	if _, err := decodeMessage([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
	if _, err := decodeMessage([]byte(`{"payload":{"before":null}}`)); err == nil {
		t.Error("expected error for payload without op")
	}
}
