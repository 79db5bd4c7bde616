package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/push/send" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key123" {
			t.Errorf("auth header = %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(sendResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123")
	err := c.Send(context.Background(), 42, "Order confirmed", "Your order is on its way", map[string]string{"order_id": "abc"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.UserID != 42 || got.Title != "Order confirmed" || got.Data["order_id"] != "abc" {
		t.Fatalf("request = %+v", got)
	}
}

func TestClientSend_GatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(sendResponse{Success: false, Message: "downstream unavailable"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123")
	if err := c.Send(context.Background(), 42, "t", "b", nil); err == nil {
		t.Fatalf("expected error from failing gateway")
	}
}
