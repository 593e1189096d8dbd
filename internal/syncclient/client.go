package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrUnknownServer = errors.New("unknown server")
)

// DefaultTimeout bounds a single request when the caller's context has no deadline.
const DefaultTimeout = 15 * time.Second

// Client is an HTTP client for one check-in server.
type Client struct {
	BaseURL   string
	AuthToken string
	UserAgent string
	HTTP      *http.Client
}

// New creates a new client for the server at baseURL.
func New(baseURL, authToken string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AuthToken: authToken,
		HTTP:      &http.Client{Timeout: DefaultTimeout},
	}
}

// Outcome describes how a fetch ended. Exactly one of the following holds:
// OK is set; Status carries the HTTP error status; Network is set; Aborted
// is set; or only Err is set (the response could not be used).
type Outcome struct {
	OK      bool
	Status  int
	Network bool
	Aborted bool
	Err     error
}

// Response is a fetch outcome plus the decoded payload when OK.
type Response[T any] struct {
	Outcome
	Data T
}

// --- Endpoints ---

func eventPath(eventID int64) string {
	return fmt.Sprintf("/api/checkin/event/%d/", eventID)
}

func regformsPath(eventID int64) string {
	return fmt.Sprintf("/api/checkin/event/%d/forms/", eventID)
}

func regformPath(eventID, regformID int64) string {
	return fmt.Sprintf("/api/checkin/event/%d/forms/%d/", eventID, regformID)
}

func participantsPath(eventID, regformID int64) string {
	return fmt.Sprintf("/api/checkin/event/%d/forms/%d/registrations/", eventID, regformID)
}

func participantPath(eventID, regformID, participantID int64) string {
	return fmt.Sprintf("/api/checkin/event/%d/forms/%d/registrations/%d", eventID, regformID, participantID)
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, eventID int64) Response[EventData] {
	return get[EventData](ctx, c, eventPath(eventID))
}

// GetRegforms fetches every registration form of an event.
func (c *Client) GetRegforms(ctx context.Context, eventID int64) Response[[]RegformData] {
	return get[[]RegformData](ctx, c, regformsPath(eventID))
}

// GetRegform fetches a single registration form.
func (c *Client) GetRegform(ctx context.Context, eventID, regformID int64) Response[RegformData] {
	return get[RegformData](ctx, c, regformPath(eventID, regformID))
}

// GetParticipants fetches every registration of a form.
func (c *Client) GetParticipants(ctx context.Context, eventID, regformID int64) Response[[]ParticipantData] {
	return get[[]ParticipantData](ctx, c, participantsPath(eventID, regformID))
}

// GetParticipant fetches a single registration.
func (c *Client) GetParticipant(ctx context.Context, eventID, regformID, participantID int64) Response[ParticipantData] {
	return get[ParticipantData](ctx, c, participantPath(eventID, regformID, participantID))
}

// --- HTTP helpers ---

func get[T any](ctx context.Context, c *Client, path string) Response[T] {
	var resp Response[T]
	resp.Outcome = c.doRequest(ctx, http.MethodGet, path, &resp.Data)
	return resp
}

// doRequest never returns a Go error; every failure is folded into the Outcome
// so callers can classify it.
func (c *Client) doRequest(ctx context.Context, method, path string, result any) Outcome {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return Outcome{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return transportFailure(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(ctx, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		slog.Debug("fetch failed", "path", path, "status", resp.StatusCode)
		out := Outcome{Status: resp.StatusCode}
		switch resp.StatusCode {
		case http.StatusNotFound:
			out.Err = ErrNotFound
		case http.StatusUnauthorized:
			out.Err = ErrUnauthorized
		case http.StatusForbidden:
			out.Err = ErrForbidden
		}
		return out
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return Outcome{Status: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
		}
	}
	return Outcome{OK: true, Status: resp.StatusCode}
}

// transportFailure classifies an error raised before a response was read.
// A cancelled caller context means the fetch was aborted; anything else
// (including timeouts) means the server is unreachable.
func transportFailure(ctx context.Context, err error) Outcome {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return Outcome{Aborted: true, Err: err}
	}
	return Outcome{Network: true, Err: err}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
