package agent

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestUploadAcceptsStringifiedScan(t *testing.T) {
	in := Upload{
		Hostname:          "WS-042",
		UserType:          "Employee",
		ScanData:          json.RawMessage(`"{\"firewall\":{\"status\":\"active\"}}"`),
		QuestionnaireData: json.RawMessage(`null`),
	}
	report, err := in.build("r-1", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fw, ok := report.ScanData["firewall"].(map[string]any)
	if !ok || fw["status"] != "active" {
		t.Fatalf("unexpected scan data %+v", report.ScanData)
	}
	if report.UserType != UserEmployee || report.Status != StatusPending || report.QuestionnaireData != nil {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestUploadValidation(t *testing.T) {
	cases := []Upload{
		{UserType: "admin", ScanData: json.RawMessage(`{"a":1}`)},
		{Hostname: "h", UserType: "guest", ScanData: json.RawMessage(`{"a":1}`)},
		{Hostname: "h", UserType: "admin"},
		{Hostname: "h", UserType: "admin", ScanData: json.RawMessage(`{}`)},
		{Hostname: "h", UserType: "admin", ScanData: json.RawMessage(`[1,2]`)},
		{Hostname: "h", UserType: "admin", ScanData: json.RawMessage(`"not json"`)},
	}
	for i, in := range cases {
		if _, err := in.build("r", time.Now()); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}
