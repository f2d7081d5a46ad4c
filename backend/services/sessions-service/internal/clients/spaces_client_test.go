package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkwise/backend/services/sessions-service/internal/models"
)

func TestSetStatusSendsExpectedRequest(t *testing.T) {
	var gotMethod, gotPath, gotStatus string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotStatus = body.Status
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewSpacesClient(server.URL, NewDefaultHTTPClient(time.Second))
	if err := client.SetStatus(context.Background(), 10, models.SpaceOccupied); err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/parking-spaces/10/status" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotStatus != "occupied" {
		t.Fatalf("status = %s, want occupied", gotStatus)
	}
}

func TestSetStatusNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewSpacesClient(server.URL, NewDefaultHTTPClient(time.Second))
	if err := client.SetStatus(context.Background(), 10, models.SpaceAvailable); err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestSetStatusUnreachableHost(t *testing.T) {
	client := NewSpacesClient("http://127.0.0.1:1", NewDefaultHTTPClient(200*time.Millisecond))
	if err := client.SetStatus(context.Background(), 10, models.SpaceAvailable); err == nil {
		t.Fatal("expected error for unreachable host")
	}
}
