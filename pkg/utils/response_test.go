package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "busy")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "busy" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDecodeJSONAcceptsEmptyBody(t *testing.T) {
	var payload struct {
		Text string `json:"text"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := DecodeJSON(req, &payload); err != nil {
		t.Fatalf("empty body should decode to zero value: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	if err := DecodeJSON(req, &payload); err != nil || payload.Text != "hi" {
		t.Fatalf("unexpected decode result %q %v", payload.Text, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)
	if err := SendSSEEvent(rec, rec, "turn", map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("SendSSEEvent: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	want := "event: turn\ndata: {\"text\":\"hi\"}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected frame %q", rec.Body.String())
	}
}
