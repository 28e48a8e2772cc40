package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, serverURL string) *TelegramClient {
	t.Helper()

	c, err := NewTelegramClient("123:token", nil, WithBaseURL(serverURL), WithMaxRetries(3))
	if err != nil {
		t.Fatalf("NewTelegramClient() error = %v", err)
	}
	return c
}

func TestChatIDString(t *testing.T) {
	t.Parallel()

	if got := ChatIDString(-1001234567890); got != "-1001234567890" {
		t.Fatalf("ChatIDString() = %q, want -1001234567890", got)
	}
}

func TestSendMessageSuccess(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if err := c.SendMessage(context.Background(), "-100123", "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if gotPath != "/bot123:token/sendMessage" {
		t.Fatalf("path = %q, want /bot123:token/sendMessage", gotPath)
	}
	if gotBody["chat_id"] != "-100123" || gotBody["text"] != "hello" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestSendMessageRateLimitedRetriesAfterServerDelay(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":2}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if err := c.SendMessage(context.Background(), "1", "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
	if len(slept) != 1 {
		t.Fatalf("sleep count = %d, want 1", len(slept))
	}
	if slept[0] < 2*time.Second {
		t.Fatalf("slept %s, want at least the server retry_after of 2s", slept[0])
	}
}

func TestSendMessagePersistentServerErrorExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"Internal Server Error"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	err := c.SendMessage(context.Background(), "1", "hello")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
	if !gatewayErr.Transient {
		t.Fatal("exhausted 5xx should still classify as transient")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3 (max attempts)", got)
	}
}

func TestSendMessageClientErrorFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	err := c.SendMessage(context.Background(), "1", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on client error)", got)
	}

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
	if gatewayErr.Code != 403 {
		t.Fatalf("Code = %d, want 403", gatewayErr.Code)
	}
	if gatewayErr.Transient {
		t.Fatal("client error should not be transient")
	}
	if want := "403:Forbidden: bot was blocked by the user"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSendPollReturnsPollID(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"poll":{"id":"poll-123"}}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	pollID, err := c.SendPoll(context.Background(), "1", "Q?", []string{"A", "B", "Other"})
	if err != nil {
		t.Fatalf("SendPoll() error = %v", err)
	}
	if pollID != "poll-123" {
		t.Fatalf("pollID = %q, want poll-123", pollID)
	}

	options, ok := gotBody["options"].([]any)
	if !ok || len(options) != 3 {
		t.Fatalf("options = %v, want 3 entries", gotBody["options"])
	}
	if gotBody["is_anonymous"] != false {
		t.Fatal("polls must not be anonymous, answers need attribution")
	}
}

func TestSendPollRejectsTooFewOptions(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:0")
	if _, err := c.SendPoll(context.Background(), "1", "Q?", []string{"A"}); err == nil {
		t.Fatal("expected error for fewer than 2 options")
	}
}

func TestSendPhotoUploadFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":502,"description":"Bad Gateway"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	err := c.SendPhotoUpload(context.Background(), "1", []byte{0xFF, 0xD8}, "photo.jpg", "caption")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 (photo upload never retries)", got)
	}
}

func TestGetUpdatesParsesEvents(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"poll_answer":{"poll_id":"p1","user":{"id":5,"first_name":"Ada"},"option_ids":[1]}},
			{"update_id":11,"message":{"message_id":3,"from":{"id":5},"chat":{"id":5},"text":"hello"}}
		]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	updates, err := c.GetUpdates(context.Background(), 0, 0, []string{"poll_answer", "message"})
	if err != nil {
		t.Fatalf("GetUpdates() error = %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("len(updates) = %d, want 2", len(updates))
	}
	if updates[0].PollAnswer == nil || updates[0].PollAnswer.PollID != "p1" {
		t.Fatalf("first update = %+v, want poll answer p1", updates[0])
	}
	if updates[1].Message == nil || updates[1].Message.Text != "hello" {
		t.Fatalf("second update = %+v, want message", updates[1])
	}
}

func TestMalformedBodyFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	err := c.SendMessage(context.Background(), "1", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if IsTransient(err) {
		t.Fatal("malformed 200 body should not be transient")
	}
}
