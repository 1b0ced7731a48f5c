package transport

import (
	"reflect"
	"testing"
)

func TestDecodeErrorBody(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want ErrorBody
	}{
		{"empty", "", EmptyBody{}},
		{"whitespace", " \n", EmptyBody{}},
		{"reason", `{"reason":"expired","message":"Token expirado"}`, ReasonBody{Reason: "expired", Message: "Token expirado"}},
		{"error only", `{"error":"invalid_credentials"}`, ReasonBody{Message: "invalid_credentials"}},
		{"tenant", `{"error":"suspended","tenant_status":"suspendido"}`, TenantStatusBody{Status: "suspendido", Message: "suspended"}},
		{"html", `<html>bad gateway</html>`, UnrecognizedBody{Raw: []byte(`<html>bad gateway</html>`)}},
		{"array", `[1,2]`, UnrecognizedBody{Raw: []byte(`[1,2]`)}},
		{"unknown fields", `{"upsell":true}`, UnrecognizedBody{Raw: []byte(`{"upsell":true}`)}},
	}
	for _, tc := range cases {
		got := DecodeErrorBody([]byte(tc.in))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: expected %#v, got %#v", tc.name, tc.want, got)
		}
	}
}
