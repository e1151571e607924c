package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

func TestLogWithDetail_WritesAuditFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), zerolog.New(&buf))

	LogWithDetail(ctx, ActionChangeRegistration, "u1", "reg1", "waitlisted->registered", "registration status changed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for key, want := range map[string]string{
		log.FieldLogType: log.LogTypeAudit,
		FieldAction:      ActionChangeRegistration,
		log.FieldUserID:  "u1",
		FieldTargetID:    "reg1",
		FieldDetail:      "waitlisted->registered",
	} {
		if entry[key] != want {
			t.Errorf("%s: expected %q, got %v", key, want, entry[key])
		}
	}
}
