package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookSender(t *testing.T) {
	t.Run("signed delivery verifies", func(t *testing.T) {
		secret := "wh-secret"
		var gotBody []byte
		var gotTS, gotSig string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			gotTS = r.Header.Get("X-Signature-Timestamp")
			gotSig = r.Header.Get("X-Signature")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		sender := NewWebhookSender(srv.URL, secret)
		sender.now = func() time.Time { return time.Unix(1770000000, 0) }

		if err := sender.Send(context.Background(), "risk alert", "portfolio exposure at 97%"); err != nil {
			t.Fatalf("send: %v", err)
		}

		var payload map[string]string
		if err := json.Unmarshal(gotBody, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if payload["title"] != "risk alert" || payload["message"] != "portfolio exposure at 97%" {
			t.Errorf("payload = %v", payload)
		}
		if gotTS != "1770000000" {
			t.Errorf("timestamp = %q, want 1770000000", gotTS)
		}
		if !VerifySignature([]byte(secret), gotTS, gotBody, gotSig) {
			t.Error("signature does not verify")
		}
		if VerifySignature([]byte("wrong"), gotTS, gotBody, gotSig) {
			t.Error("signature verified with the wrong secret")
		}
		if VerifySignature([]byte(secret), "1770000001", gotBody, gotSig) {
			t.Error("signature verified with a tampered timestamp")
		}
	})

	t.Run("no secret means no signature", func(t *testing.T) {
		var gotSig string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSig = r.Header.Get("X-Signature")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		sender := NewWebhookSender(srv.URL, "")
		if err := sender.Send(context.Background(), "t", "m"); err != nil {
			t.Fatalf("send: %v", err)
		}
		if gotSig != "" {
			t.Errorf("signature = %q, want unsigned request", gotSig)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		sender := NewWebhookSender(srv.URL, "")
		if err := sender.Send(context.Background(), "t", "m"); err == nil {
			t.Fatal("expected an error for status 403")
		}
	})
}
