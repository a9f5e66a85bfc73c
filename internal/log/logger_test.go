// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

var logBuf bytes.Buffer

func TestMain(m *testing.M) {
	Configure(Config{Level: "debug", Output: &logBuf, Service: "harmon-test", Version: "test"})
	os.Exit(m.Run())
}

func TestConfigureOnce(t *testing.T) {
	// A second Configure is a no-op; the writer from TestMain stays attached.
	Configure(Config{Service: "other"})

	logger := Base()
	logger.Info().Str("event", "test.configure").Msg("configured")

	lines := strings.Split(strings.TrimSpace(logBuf.String()), "\n")
	line := lines[len(lines)-1]
	if line == "" {
		t.Fatal("expected a log line")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if entry["service"] != "harmon-test" {
		t.Errorf("service = %v, want harmon-test", entry["service"])
	}
	if entry["version"] != "test" {
		t.Errorf("version = %v, want test", entry["version"])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent("store").Output(&buf)
	logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if entry["component"] != "store" {
		t.Errorf("component = %v, want store", entry["component"])
	}
}

func TestDerive(t *testing.T) {
	var buf bytes.Buffer
	logger := Derive(nil).Output(&buf)
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}
