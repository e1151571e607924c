package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("social.followed", "user-a", map[string]string{"following_id": "user-b"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp to be set: %+v", ev)
	}

	var payload map[string]string
	if err := ev.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if payload["following_id"] != "user-b" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "domain-events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub, err := NewPublisher(Config{Driver: "redis"}, client)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	ev, _ := NewEvent("registration.created", "event-1", map[string]string{"status": "registered"})
	if err := pub.Publish(ctx, "domain-events", ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}

	var got Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "registration.created" || got.Key != "event-1" {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestNewPublisher_Drivers(t *testing.T) {
	p, err := NewPublisher(Config{Driver: "none"}, nil)
	if err != nil {
		t.Fatalf("none driver: %v", err)
	}
	if err := p.Publish(context.Background(), "t", &Event{}); err != nil {
		t.Errorf("nop publish returned %v", err)
	}

	if _, err := NewPublisher(Config{Driver: "redis"}, nil); err == nil {
		t.Error("expected error for redis driver without client")
	}
	if _, err := NewPublisher(Config{Driver: "carrier-pigeon"}, nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}
