package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{raw: "2025-06-01", want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{raw: " 2025-06-01 ", want: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "2025-06-01T18:30:00+02:00", want: time.Date(2025, 6, 1, 16, 30, 0, 0, time.UTC)},
		{raw: "01/06/2025", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseDate(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDate(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tc.raw, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestEventInputPlannedDate(t *testing.T) {
	var in TurnInput
	if err := json.Unmarshal([]byte(`{"message":"hi","event":{"planned_date":"2025-06-01"}}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	h := in.Event.Hints()
	if h.PlannedDate == nil || !h.PlannedDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected planned date %v", h.PlannedDate)
	}

	in = TurnInput{}
	if err := json.Unmarshal([]byte(`{"message":"hi","event":{"planned_date":null}}`), &in); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if h := in.Event.Hints(); h.PlannedDate != nil {
		t.Fatalf("null date must leave the hint unset, got %v", h.PlannedDate)
	}

	if err := json.Unmarshal([]byte(`{"message":"hi","event":{"planned_date":"next friday"}}`), &in); err == nil {
		t.Fatalf("expected an error for an unparseable date")
	}
}
