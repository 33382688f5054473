package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	t.Run("info entry carries action and details", func(t *testing.T) {
		buf.Reset()
		l.log(LevelInfo, "board_created", nil, map[string]interface{}{"boardID": "b1"}, nil)

		var entry LogEntry
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
		}
		if entry.Level != LevelInfo || entry.Action != "board_created" {
			t.Errorf("unexpected entry %+v", entry)
		}
		if entry.Details["boardID"] != "b1" {
			t.Errorf("expected details preserved, got %v", entry.Details)
		}
	})

	t.Run("error entry records the error string", func(t *testing.T) {
		buf.Reset()
		l.log(LevelError, "upload_failed", nil, nil, errors.New("bucket unreachable"))

		var entry LogEntry
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
		}
		if entry.Error != "bucket unreachable" {
			t.Errorf("expected error recorded, got %q", entry.Error)
		}
	})

	t.Run("sensitive fields are redacted", func(t *testing.T) {
		buf.Reset()
		userID := "u1"
		l.log(LevelWarn, "login_failed", &userID, map[string]interface{}{
			"password": "hunter2",
			"email":    "a@b.test",
		}, nil)

		line := buf.String()
		if strings.Contains(line, "hunter2") {
			t.Errorf("expected password redacted, got %q", line)
		}
		if !strings.Contains(line, "[REDACTED]") || !strings.Contains(line, "a@b.test") {
			t.Errorf("expected redaction marker beside untouched fields, got %q", line)
		}
	})
}

func TestGenerateRequestID(t *testing.T) {
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("expected distinct request ids")
	}
}
