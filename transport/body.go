package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// ErrorBody is the decoded shape of an error response. It is one of EmptyBody,
// ReasonBody, TenantStatusBody or UnrecognizedBody.
type ErrorBody interface {
	errorBody()
}

// EmptyBody is a response without content.
type EmptyBody struct{}

// ReasonBody carries a machine reason and/or a human message.
type ReasonBody struct {
	Reason  string
	Message string
}

// TenantStatusBody carries the tenant payment status.
type TenantStatusBody struct {
	Status  string
	Message string
}

// UnrecognizedBody is content that is not a JSON object with known fields.
type UnrecognizedBody struct {
	Raw []byte
}

func (EmptyBody) errorBody() {}
func (ReasonBody) errorBody() {}
func (TenantStatusBody) errorBody() {}
func (UnrecognizedBody) errorBody() {}

type wireError struct {
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	Error        string `json:"error"`
	TenantStatus string `json:"tenant_status"`
}

// DecodeErrorBody decodes an error response body in one step. A tenant status takes
// precedence over a reason; "error" is used as the message when "message" is absent.
func DecodeErrorBody(b []byte) ErrorBody {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return EmptyBody{}
	}
	var w wireError
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &w) != nil {
		return UnrecognizedBody{Raw: b}
	}
	msg := w.Message
	if msg == "" {
		msg = w.Error
	}
	switch {
	case w.TenantStatus != "":
		return TenantStatusBody{Status: w.TenantStatus, Message: msg}
	case w.Reason != "" || msg != "":
		return ReasonBody{Reason: w.Reason, Message: msg}
	default:
		return UnrecognizedBody{Raw: b}
	}
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (r replayBody) Close() error {
	return r.closer.Close()
}

// peekBody reads up to limit bytes of resp.Body and puts them back in front of the
// unread remainder.
func peekBody(resp *http.Response, limit int64) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil && len(buf) == 0 {
		return nil
	}
	resp.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(buf), resp.Body),
		closer: resp.Body,
	}
	return buf
}
