package ga

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shoshosho1210/coinrader/pkg/track"
)

type recordedRequest struct {
	query   map[string]string
	payload payload
}

// newCollectServer returns a test endpoint that records every payload it
// receives and answers with status.
func newCollectServer(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}

		mu.Lock()
		requests = append(requests, recordedRequest{
			query: map[string]string{
				"measurement_id": r.URL.Query().Get("measurement_id"),
				"api_secret":     r.URL.Query().Get("api_secret"),
			},
			payload: p,
		})
		mu.Unlock()

		w.WriteHeader(status)
	}))

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedRequest, len(requests))
		copy(out, requests)
		return out
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client := NewClient(Config{
		MeasurementID: "G-TEST123",
		APISecret:     "secret",
		Endpoint:      endpoint,
		Timeout:       2 * time.Second,
	}, nil, nil)
	if client == nil {
		t.Fatal("Expected an enabled client")
	}
	return client
}

func TestNewClientDisabled(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"empty config", Config{}},
		{"missing secret", Config{MeasurementID: "G-TEST123"}},
		{"missing measurement id", Config{APISecret: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if client := NewClient(tt.config, nil, nil); client != nil {
				t.Error("Expected nil client for disabled config")
			}
		})
	}
}

func TestDialReporter(t *testing.T) {
	if reporter := DialReporter(nil); reporter != nil {
		t.Error("Expected nil reporter for nil client")
	}

	server, _ := newCollectServer(t, http.StatusNoContent)
	defer server.Close()
	if reporter := DialReporter(newTestClient(t, server.URL)); reporter == nil {
		t.Error("Expected non-nil reporter for enabled client")
	}
}

func TestReportSyncDelivers(t *testing.T) {
	server, requests := newCollectServer(t, http.StatusNoContent)
	defer server.Close()
	client := newTestClient(t, server.URL)

	var done atomic.Int32
	event := track.NewEvent(track.EventCTAClick).Set("cta_id", "hero_banner")
	client.Report(context.Background(), event, track.ReportOptions{
		Done:     func() { done.Add(1) },
		ClientID: "cid-42",
	})

	deadline := time.Now().Add(3 * time.Second)
	for done.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected done to fire after delivery")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("Expected one request, got %d", len(got))
	}
	if got[0].query["measurement_id"] != "G-TEST123" {
		t.Errorf("Expected measurement_id G-TEST123, got %s", got[0].query["measurement_id"])
	}
	if got[0].query["api_secret"] != "secret" {
		t.Errorf("Expected api_secret secret, got %s", got[0].query["api_secret"])
	}
	if got[0].payload.ClientID != "cid-42" {
		t.Errorf("Expected client_id cid-42, got %s", got[0].payload.ClientID)
	}
	if len(got[0].payload.Events) != 1 || got[0].payload.Events[0].Name != track.EventCTAClick {
		t.Errorf("Expected one cta_click event, got %+v", got[0].payload.Events)
	}
}

func TestReportSyncDoneFiresOnFailureToo(t *testing.T) {
	server, _ := newCollectServer(t, http.StatusInternalServerError)
	defer server.Close()
	client := newTestClient(t, server.URL)

	var done atomic.Int32
	client.Report(context.Background(), track.NewEvent(track.EventOutboundClick), track.ReportOptions{
		Done: func() { done.Add(1) },
	})

	deadline := time.Now().Add(3 * time.Second)
	for done.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected done to fire even on server error")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := done.Load(); got != 1 {
		t.Errorf("Expected done once, got %d", got)
	}
}

func TestReportBeaconCompletesImmediately(t *testing.T) {
	server, requests := newCollectServer(t, http.StatusNoContent)
	defer server.Close()
	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	defer client.Stop(time.Second)

	var done atomic.Int32
	client.Report(ctx, track.NewEvent(track.EventAffiliateClick), track.ReportOptions{
		Done:     func() { done.Add(1) },
		Beacon:   true,
		ClientID: "cid-7",
	})

	if got := done.Load(); got != 1 {
		t.Fatalf("Expected done immediately on enqueue, got %d", got)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(requests()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected queued payload to be delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stats := client.QueueStats()
	if stats.Delivered != 1 {
		t.Errorf("Expected 1 delivered, got %+v", stats)
	}
}

func TestReportBeaconAnonymousClientID(t *testing.T) {
	server, requests := newCollectServer(t, http.StatusNoContent)
	defer server.Close()
	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)
	defer client.Stop(time.Second)

	client.Report(ctx, track.NewEvent(track.EventOutboundClick), track.ReportOptions{Beacon: true})

	deadline := time.Now().Add(3 * time.Second)
	for len(requests()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected delivery")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := requests()[0].payload.ClientID; got == "" {
		t.Error("Expected a generated client id, got empty")
	}
}

func TestStopDrainsQueue(t *testing.T) {
	server, requests := newCollectServer(t, http.StatusNoContent)
	defer server.Close()
	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Start(ctx)

	for i := 0; i < 5; i++ {
		client.Report(ctx, track.NewEvent(track.EventOutboundClick), track.ReportOptions{Beacon: true})
	}
	client.Stop(3 * time.Second)

	if got := len(requests()); got != 5 {
		t.Errorf("Expected 5 deliveries after drain, got %d", got)
	}
}
