package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/webtraffic/hitgen/internal/httpclient"
)

func TestBuildTarget(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		date    string
		want    string
		wantErr bool
	}{
		{
			name: "no date passes through",
			base: "http://example.com/api/hit",
			want: "http://example.com/api/hit",
		},
		{
			name: "date appended",
			base: "http://example.com/api/hit",
			date: "2026-08-28",
			want: "http://example.com/api/hit?date=2026-08-28",
		},
		{
			name: "existing query preserved",
			base: "http://example.com/api/hit?source=sim",
			date: "2026-08-28",
			want: "http://example.com/api/hit?date=2026-08-28&source=sim",
		},
		{
			name:    "empty base rejected",
			base:    "   ",
			wantErr: true,
		},
		{
			name:    "unparseable base rejected",
			base:    "http://bad url with spaces",
			date:    "2026-08-28",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := httpclient.BuildTarget(tt.base, tt.date)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildTarget(%q, %q) expected error", tt.base, tt.date)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildTarget() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHitSenderSend(t *testing.T) {
	var gotMethod, gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotDate = r.URL.Query().Get("date")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	target, err := httpclient.BuildTarget(server.URL, "2026-08-31")
	if err != nil {
		t.Fatal(err)
	}

	sender := httpclient.NewHitSender(httpclient.NewClient(5*time.Second), target, nil)
	if sender.Target() != target {
		t.Errorf("Target() = %q, want %q", sender.Target(), target)
	}

	status, err := sender.Send(context.Background())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if status != http.StatusAccepted {
		t.Errorf("status = %d, want 202", status)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotDate != "2026-08-31" {
		t.Errorf("date = %q, want 2026-08-31", gotDate)
	}
}

func TestHitSenderTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	sender := httpclient.NewHitSender(httpclient.NewClient(time.Second), server.URL, nil)
	status, err := sender.Send(context.Background())
	if err == nil {
		t.Fatal("expected transport error for closed server")
	}
	if status != 0 {
		t.Errorf("status = %d, want 0 on transport error", status)
	}
}

func TestHitSenderTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow timeout test")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	sender := httpclient.NewHitSender(httpclient.NewClient(50*time.Millisecond), server.URL, nil)
	_, err := sender.Send(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "deadline") &&
		!strings.Contains(strings.ToLower(err.Error()), "timeout") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHitSenderCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := httpclient.NewHitSender(httpclient.NewClient(5*time.Second), server.URL, nil)
	if _, err := sender.Send(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
