package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestampLayouts(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	for _, in := range []string{
		`"2025-03-01T12:30:00Z"`,
		`"2025-03-01T09:30:00-03:00"`,
		`"2025-03-01T12:30:00"`,
		`"2025-03-01 12:30:00"`,
	} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(in), &ts); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !ts.Equal(want) {
			t.Fatalf("%s: got %v", in, ts.Time)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.IsZero() {
		t.Fatalf("null: %v %v", ts, err)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseLogCSVRejectsUnknownHeader(t *testing.T) {
	if _, err := parseLogCSV([]byte("a,b,c\n")); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := parseLogCSV(nil); err == nil {
		t.Fatal("expected empty export error")
	}
	rows, err := parseLogCSV([]byte("timestamp_equipo,device_id,raw_log\n,7,boot\n"))
	if err != nil || len(rows) != 1 || rows[0].DeviceID != 7 || !rows[0].DeviceTimestamp.IsZero() {
		t.Fatalf("rows=%+v err=%v", rows, err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{401, `{"reason":"expired"}`, ErrUnauthorized},
		{402, `{"upsell":true}`, ErrUpsellRequired},
		{403, `{"tenant_status":"suspendido"}`, ErrTenantSuspended},
		{423, `{"tenant_status":"suspendido"}`, ErrTenantSuspended},
		{403, `{}`, ErrForbidden},
		{404, ``, ErrNotFound},
		{409, `{"error":"email_taken"}`, ErrIdentifierTaken},
		{400, `{"error":"email_required"}`, ErrIdentifierRequired},
		{400, `{"error":"invalid_email"}`, ErrIdentifierInvalid},
		{422, `not json`, ErrInvalidRequest},
		{429, `{}`, ErrRateLimited},
		{503, `{}`, ErrServer},
	}
	for _, tc := range cases {
		e := newError(tc.status, []byte(tc.body))
		if e.Unwrap() != tc.want {
			t.Fatalf("%d %s: expected %v, got %v", tc.status, tc.body, tc.want, e.Unwrap())
		}
	}
}
