package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New("debug", "json", &buf), "reports")
	l.Info().Int("records", 3).Msg("computed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %s", buf.String())
	}
	if line["component"] != "reports" || line["message"] != "computed" || line["level"] != "info" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("chatty", "json", &buf)
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %s", buf.String())
	}
}
