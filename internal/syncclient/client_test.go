package syncclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcus/checkin/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetEvent_Success(t *testing.T) {
	var gotAuth, gotPath string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"id": 42, "title": "Summer School", "startDt": "2024-06-01T09:00:00+02:00"}`)
	})

	c := New(srv.URL+"/", "secret-token")
	resp := c.GetEvent(context.Background(), 42)
	if !resp.OK {
		t.Fatalf("expected OK, got %+v", resp.Outcome)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization: got %q", gotAuth)
	}
	if gotPath != "/api/checkin/event/42/" {
		t.Errorf("path: got %q", gotPath)
	}
	if resp.Data.ID != 42 || resp.Data.Title != "Summer School" {
		t.Errorf("data: got %+v", resp.Data)
	}
	if resp.Data.StartDt.Year() != 2024 {
		t.Errorf("startDt: got %v", resp.Data.StartDt)
	}
}

func TestGetParticipants_DecodesList(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/checkin/event/1/forms/2/registrations/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[
			{"id": 7, "fullName": "Ada Lovelace", "state": "complete", "checkedIn": true,
			 "checkedInDt": "2024-06-01T10:00:00Z", "registrationDate": "2024-05-01T10:00:00Z",
			 "registrationData": [{"id": 1, "title": "Personal", "fields": []}],
			 "price": 12.5, "currency": "EUR", "isPaid": true},
			{"id": 8, "fullName": "Alan Turing", "state": "pending", "registrationDate": "2024-05-02T10:00:00Z"}
		]`)
	})

	resp := New(srv.URL, "").GetParticipants(context.Background(), 1, 2)
	if !resp.OK {
		t.Fatalf("expected OK, got %+v", resp.Outcome)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d participants, want 2", len(resp.Data))
	}
	p := resp.Data[0]
	if p.State != models.StateComplete || !p.CheckedIn || p.CheckedInDt == nil {
		t.Errorf("first participant: %+v", p)
	}
	if string(p.RegistrationData) == "" {
		t.Error("registration data should be kept raw")
	}
	if resp.Data[1].CheckedInDt != nil {
		t.Error("missing checkedInDt should decode to nil")
	}
}

func TestOutcomeClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"error": "gone"}`, ErrNotFound},
		{"server error", http.StatusInternalServerError, `boom`, nil},
		{"unauthorized", http.StatusUnauthorized, ``, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ``, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			resp := New(srv.URL, "").GetRegform(context.Background(), 1, 2)
			if resp.OK {
				t.Fatal("expected failure")
			}
			if resp.Status != tt.status {
				t.Errorf("Status: got %d, want %d", resp.Status, tt.status)
			}
			if resp.Network || resp.Aborted {
				t.Errorf("HTTP failure must not be network/aborted: %+v", resp.Outcome)
			}
			if tt.wantErr == nil && resp.Err != nil {
				t.Errorf("Err: got %v, want nil", resp.Err)
			}
			if tt.wantErr != nil && !errors.Is(resp.Err, tt.wantErr) {
				t.Errorf("Err: got %v, want %v", resp.Err, tt.wantErr)
			}
		})
	}
}

func TestOutcome_BadJSON(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "not-a-number"`)
	})
	resp := New(srv.URL, "").GetEvent(context.Background(), 1)
	if resp.OK {
		t.Fatal("expected failure on malformed body")
	}
	if resp.Err == nil {
		t.Fatal("expected decode error")
	}
	if resp.Network || resp.Aborted {
		t.Errorf("decode failure must be surfaced, got %+v", resp.Outcome)
	}
}

func TestOutcome_Network(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp := New(url, "").GetEvent(context.Background(), 1)
	if resp.OK || !resp.Network {
		t.Fatalf("expected network failure, got %+v", resp.Outcome)
	}
	if resp.Aborted {
		t.Error("unreachable server must not be classified as aborted")
	}
}

func TestOutcome_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	c := New(srv.URL, "")
	c.HTTP.Timeout = 50 * time.Millisecond
	resp := c.GetEvent(context.Background(), 1)
	if !resp.Network {
		t.Fatalf("timeout should be a network failure, got %+v", resp.Outcome)
	}
}

func TestOutcome_Aborted(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := New(srv.URL, "").GetEvent(ctx, 1)
	if resp.OK || !resp.Aborted {
		t.Fatalf("expected aborted, got %+v", resp.Outcome)
	}
	if resp.Network {
		t.Error("cancellation must not be classified as network failure")
	}
}

type stubServers map[int64]*models.Server

func (s stubServers) GetServer(ctx context.Context, id int64) (*models.Server, error) {
	if srv, ok := s[id]; ok {
		return srv, nil
	}
	return nil, errors.New("not found")
}

func TestDirectory_RoutesByServer(t *testing.T) {
	var hits int
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization: got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "checkin/test" {
			t.Errorf("User-Agent: got %q", got)
		}
		fmt.Fprint(w, `[{"id": 3, "title": "Main"}]`)
	})

	dir := NewDirectory(stubServers{1: {ID: 1, BaseURL: srv.URL, AuthToken: "tok-1"}}, time.Second, "checkin/test")
	for i := 0; i < 2; i++ {
		resp := dir.GetRegforms(context.Background(), Params{ServerID: 1, EventID: 9})
		if !resp.OK || len(resp.Data) != 1 {
			t.Fatalf("call %d: got %+v", i, resp)
		}
	}
	if hits != 2 {
		t.Errorf("hits: got %d, want 2", hits)
	}
	if len(dir.clients) != 1 {
		t.Errorf("expected one cached client, got %d", len(dir.clients))
	}
	dir.Forget(1)
	if len(dir.clients) != 0 {
		t.Error("Forget should drop the cached client")
	}
}

func TestDirectory_UnknownServer(t *testing.T) {
	dir := NewDirectory(stubServers{}, 0, "")
	resp := dir.GetEvent(context.Background(), Params{ServerID: 5, EventID: 1})
	if resp.OK || resp.Network || resp.Aborted {
		t.Fatalf("unexpected outcome %+v", resp.Outcome)
	}
	if !errors.Is(resp.Err, ErrUnknownServer) {
		t.Errorf("Err: got %v, want ErrUnknownServer", resp.Err)
	}
}

func TestDirectory_CancelledBeforeResolve(t *testing.T) {
	dir := NewDirectory(stubServers{}, 0, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := dir.GetParticipant(ctx, Params{ServerID: 5})
	if !resp.Aborted {
		t.Errorf("expected aborted, got %+v", resp.Outcome)
	}
}
