package syncclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcus/checkin/internal/models"
)

// Params identifies the remote resource of a fetch. Only the IDs relevant
// to the endpoint are read.
type Params struct {
	ServerID      int64
	EventID       int64
	RegformID     int64
	ParticipantID int64
}

// ServerLookup resolves a locally stored server by its local ID.
type ServerLookup interface {
	GetServer(ctx context.Context, id int64) (*models.Server, error)
}

// Directory routes fetches to the client of the server an event belongs to.
// Clients are built lazily and reused.
type Directory struct {
	servers   ServerLookup
	timeout   time.Duration
	userAgent string

	mu      sync.Mutex
	clients map[int64]*Client
}

// NewDirectory creates a directory backed by servers. A zero timeout uses
// DefaultTimeout.
func NewDirectory(servers ServerLookup, timeout time.Duration, userAgent string) *Directory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Directory{
		servers:   servers,
		timeout:   timeout,
		userAgent: userAgent,
		clients:   make(map[int64]*Client),
	}
}

// Forget drops the cached client of a server, e.g. after its token changed.
func (d *Directory) Forget(serverID int64) {
	d.mu.Lock()
	delete(d.clients, serverID)
	d.mu.Unlock()
}

func (d *Directory) client(ctx context.Context, serverID int64) (*Client, error) {
	d.mu.Lock()
	c, ok := d.clients[serverID]
	d.mu.Unlock()
	if ok {
		return c, nil
	}

	srv, err := d.servers.GetServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrUnknownServer, serverID, err)
	}

	c = New(srv.BaseURL, srv.AuthToken)
	c.HTTP.Timeout = d.timeout
	c.UserAgent = d.userAgent

	d.mu.Lock()
	d.clients[serverID] = c
	d.mu.Unlock()
	return c, nil
}

// resolveFailure folds a lookup error into a response. A cancelled context
// still counts as aborted.
func resolveFailure[T any](ctx context.Context, err error) Response[T] {
	if ctx.Err() != nil {
		return Response[T]{Outcome: transportFailure(ctx, ctx.Err())}
	}
	return Response[T]{Outcome: Outcome{Err: err}}
}

// GetEvent fetches p.EventID from p.ServerID.
func (d *Directory) GetEvent(ctx context.Context, p Params) Response[EventData] {
	c, err := d.client(ctx, p.ServerID)
	if err != nil {
		return resolveFailure[EventData](ctx, err)
	}
	return c.GetEvent(ctx, p.EventID)
}

// GetRegforms fetches every form of p.EventID.
func (d *Directory) GetRegforms(ctx context.Context, p Params) Response[[]RegformData] {
	c, err := d.client(ctx, p.ServerID)
	if err != nil {
		return resolveFailure[[]RegformData](ctx, err)
	}
	return c.GetRegforms(ctx, p.EventID)
}

// GetRegform fetches p.RegformID.
func (d *Directory) GetRegform(ctx context.Context, p Params) Response[RegformData] {
	c, err := d.client(ctx, p.ServerID)
	if err != nil {
		return resolveFailure[RegformData](ctx, err)
	}
	return c.GetRegform(ctx, p.EventID, p.RegformID)
}

// GetParticipants fetches every registration of p.RegformID.
func (d *Directory) GetParticipants(ctx context.Context, p Params) Response[[]ParticipantData] {
	c, err := d.client(ctx, p.ServerID)
	if err != nil {
		return resolveFailure[[]ParticipantData](ctx, err)
	}
	return c.GetParticipants(ctx, p.EventID, p.RegformID)
}

// GetParticipant fetches p.ParticipantID.
func (d *Directory) GetParticipant(ctx context.Context, p Params) Response[ParticipantData] {
	c, err := d.client(ctx, p.ServerID)
	if err != nil {
		return resolveFailure[ParticipantData](ctx, err)
	}
	return c.GetParticipant(ctx, p.EventID, p.RegformID, p.ParticipantID)
}
