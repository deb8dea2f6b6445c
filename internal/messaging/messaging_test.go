package messaging

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ReelBites/ReelBites/internal/models"
)

func TestTruncate(t *testing.T) {
	short := "hello"
	if got := Truncate(short); got != short {
		t.Errorf("expected short text unchanged, got %q", got)
	}

	long := strings.Repeat("好", MaxMessageLength+50)
	got := Truncate(long)
	runes := []rune(got)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("expected truncation marker suffix")
	}
	wantLen := MaxMessageLength + len([]rune(truncationMarker))
	if len(runes) != wantLen {
		t.Errorf("expected %d runes after truncation, got %d", wantLen, len(runes))
	}
}

func TestSendMessage(t *testing.T) {
	var captured sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "test-token" {
			t.Error("expected access token in query")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendResponse{RecipientID: captured.Recipient.ID, MessageID: "m1"})
	}))
	defer server.Close()

	svc, err := NewInstagramService(WithAccessToken("test-token"), WithGraphAPIBase(server.URL))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := svc.SendMessage(context.Background(), "user-1", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if captured.Recipient.ID != "user-1" {
		t.Errorf("expected recipient user-1, got %s", captured.Recipient.ID)
	}
	if captured.Message.Text != "hello" {
		t.Errorf("expected text hello, got %s", captured.Message.Text)
	}
	if captured.MessagingType != "UPDATE" {
		t.Errorf("expected messaging_type UPDATE, got %s", captured.MessagingType)
	}
}

func TestSendQuickReplies(t *testing.T) {
	var captured sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendResponse{MessageID: "m2"})
	}))
	defer server.Close()

	svc, err := NewInstagramService(WithAccessToken("t"), WithGraphAPIBase(server.URL))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	options := []models.QuickReply{
		{Title: "✅ Yes", Payload: models.PayloadYes},
		{Title: "❌ No", Payload: models.PayloadNo},
	}
	if err := svc.SendQuickReplies(context.Background(), "user-2", "Is this right?", options); err != nil {
		t.Fatalf("SendQuickReplies failed: %v", err)
	}
	if captured.MessagingType != "RESPONSE" {
		t.Errorf("expected messaging_type RESPONSE, got %s", captured.MessagingType)
	}
	if len(captured.Message.QuickReplies) != 2 {
		t.Fatalf("expected 2 quick replies, got %d", len(captured.Message.QuickReplies))
	}
	if captured.Message.QuickReplies[0].ContentType != "text" {
		t.Errorf("expected content_type text, got %s", captured.Message.QuickReplies[0].ContentType)
	}
	if captured.Message.QuickReplies[1].Payload != models.PayloadNo {
		t.Errorf("unexpected payload %s", captured.Message.QuickReplies[1].Payload)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(sendResponse{Error: &sendError{Message: "Invalid user", Code: 100}})
	}))
	defer server.Close()

	svc, _ := NewInstagramService(WithAccessToken("t"), WithGraphAPIBase(server.URL))
	err := svc.SendMessage(context.Background(), "bad-user", "hi")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if !strings.Contains(err.Error(), "Invalid user") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestParseWebhookEventReel(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"id": "page-1",
			"time": 1700000000000,
			"messaging": [{
				"sender": {"id": "user-1"},
				"recipient": {"id": "page-1"},
				"timestamp": 1700000000000,
				"message": {
					"mid": "mid-1",
					"attachments": [{"type": "ig_reel", "payload": {"url": "https://example.com/r", "title": "超好吃的牛肉麵"}}]
				}
			}]
		}]
	}`)

	event, err := ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	events := event.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Kind != models.EventReel {
		t.Errorf("expected reel event, got %v", events[0].Kind)
	}
	if events[0].Caption != "超好吃的牛肉麵" {
		t.Errorf("unexpected caption %q", events[0].Caption)
	}
	if events[0].SenderID != "user-1" {
		t.Errorf("unexpected sender %q", events[0].SenderID)
	}
}

func TestParseWebhookEventReelEmptyCaption(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{"messaging": [{
			"sender": {"id": "u"},
			"message": {"attachments": [{"type": "ig_reel", "payload": {"url": "https://example.com/r"}}]}
		}]}]
	}`)

	event, err := ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	events := event.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Caption != DefaultCaption {
		t.Errorf("expected default caption, got %q", events[0].Caption)
	}
}

func TestParseWebhookEventKinds(t *testing.T) {
	tests := []struct {
		name    string
		message string
		kind    models.EventKind
	}{
		{"quick reply", `{"quick_reply": {"payload": "YES"}, "text": "✅ Yes"}`, models.EventQuickReply},
		{"plain text", `{"text": "hello"}`, models.EventText},
		{"image attachment", `{"attachments": [{"type": "image", "payload": {"url": "https://example.com/i.jpg"}}]}`, models.EventAttachment},
		{"empty message", `{}`, models.EventUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := []byte(`{"object": "instagram", "entry": [{"messaging": [{"sender": {"id": "u"}, "message": ` + tc.message + `}]}]}`)
			event, err := ParseWebhookEvent(body)
			if err != nil {
				t.Fatalf("failed to parse: %v", err)
			}
			events := event.Events()
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Kind != tc.kind {
				t.Errorf("expected kind %v, got %v", tc.kind, events[0].Kind)
			}
		})
	}
}

func TestEventsSkipsEchoes(t *testing.T) {
	body := []byte(`{"object": "instagram", "entry": [{"messaging": [
		{"sender": {"id": "page"}, "message": {"is_echo": true, "text": "our own reply"}},
		{"sender": {"id": "user"}, "message": {"text": "real message"}}
	]}]}`)

	event, err := ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	events := event.Events()
	if len(events) != 1 {
		t.Fatalf("expected echo to be skipped, got %d events", len(events))
	}
	if events[0].Text != "real message" {
		t.Errorf("unexpected text %q", events[0].Text)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"object":"instagram"}`)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature(secret, body, sig) {
		t.Error("expected valid signature to verify")
	}
	if VerifySignature(secret, body, "sha256=deadbeef") {
		t.Error("expected wrong signature to fail")
	}
	if VerifySignature(secret, body, "") {
		t.Error("expected missing header to fail")
	}
	if !VerifySignature("", body, "") {
		t.Error("expected empty secret to disable verification")
	}
}
