package logs

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWith(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewTestLogger(&buffer).With(Any("submission_id", 42))
	logger.Warn("Result ignored", Any("testcase_id", 7), errors.New("outdated"))
	var line map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &line); err != nil {
		t.Fatal("Error:", err)
	}
	if v := line["message"]; v != "Result ignored" {
		t.Fatalf("Expected %q, got %v", "Result ignored", v)
	}
	if v := line["submission_id"]; v != float64(42) {
		t.Fatalf("Expected %v, got %v", 42, v)
	}
	if v := line["testcase_id"]; v != float64(7) {
		t.Fatalf("Expected %v, got %v", 7, v)
	}
	if v := line["error"]; v != "outdated" {
		t.Fatalf("Expected %q, got %v", "outdated", v)
	}
	if v := line["level"]; v != "WARN" {
		t.Fatalf("Expected %q, got %v", "WARN", v)
	}
	file, ok := line["file"].(string)
	if !ok || !strings.Contains(file, "logger_test.go") {
		t.Fatalf("Expected caller file, got %v", line["file"])
	}
}

func TestLoggerUnsupportedField(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Expected panic")
		}
	}()
	NewTestLogger(&bytes.Buffer{}).Info(42)
}
