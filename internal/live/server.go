package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/events"
)

// MessageType defines the type of a broadcast message
type MessageType string

const (
	// MessageChange reports committed local writes.
	MessageChange MessageType = "change"
	// MessageSyncComplete reports the end of a sync pass.
	MessageSyncComplete MessageType = "sync_complete"
	// MessageAlert carries a surfaced sync failure.
	MessageAlert MessageType = "alert"
	// MessageHello is sent once to every new client.
	MessageHello MessageType = "hello"
)

// Message is one broadcast frame
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ChangeData lists the rows a write touched.
type ChangeData struct {
	External bool        `json:"external,omitempty"`
	Rows     []ChangeRow `json:"rows,omitempty"`
}

// ChangeRow is one touched row.
type ChangeRow struct {
	Table  events.EntityType `json:"table"`
	Action events.ActionType `json:"action"`
	ID     int64             `json:"id"`
}

// SyncCompleteData summarizes a sync pass.
type SyncCompleteData struct {
	Events   int           `json:"events"`
	Alerts   int           `json:"alerts"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// AlertData is a surfaced failure.
type AlertData struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewMessage builds a message with data encoded as JSON.
func NewMessage(t MessageType, data any) (Message, error) {
	msg := Message{Type: t, Timestamp: time.Now()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return msg, fmt.Errorf("encode %s: %w", t, err)
		}
		msg.Data = raw
	}
	return msg, nil
}

const writeTimeout = 5 * time.Second

// Server fans messages out to websocket clients.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server that will listen on addr.
func NewServer(addr string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Handler returns the HTTP routes: /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start listens and begins broadcasting.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Run()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		slog.Info("live: listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("live: serve", "err", err)
		}
	}()
	return nil
}

// Run starts only the broadcast loop, for callers that mount Handler on
// their own HTTP server.
func (s *Server) Run() {
	s.wg.Add(1)
	go s.broadcastLoop()
}

// Stop disconnects clients and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := s.server.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("shutdown: %w", serr)
		}
	}
	s.wg.Wait()
	return err
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast queues msg for every client. Messages are dropped when the
// queue is full.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		slog.Warn("live: broadcast queue full, dropping message", "type", msg.Type)
	}
}

// Forward broadcasts every store change until the returned func is called.
func (s *Server) Forward(store Subscriber) (stop func()) {
	return store.Subscribe(func(cs db.ChangeSet) {
		data := ChangeData{External: cs.External}
		for _, r := range cs.Rows {
			data.Rows = append(data.Rows, ChangeRow{Table: r.Table, Action: r.Action, ID: r.ID})
		}
		msg, err := NewMessage(MessageChange, data)
		if err != nil {
			slog.Warn("live: forward", "err", err)
			return
		}
		s.Broadcast(msg)
	})
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Warn("live: marshal", "err", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					slog.Debug("live: client write failed", "err", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Debug("live: websocket upgrade failed", "err", err)
		return
	}

	hello, _ := NewMessage(MessageHello, nil)
	data, _ := json.Marshal(hello)
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	err = conn.Write(ctx, websocket.MessageText, data)
	cancel()
	if err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	n := len(s.clients)
	s.clientsMu.Unlock()
	slog.Debug("live: client connected", "clients", n)

	go s.readLoop(conn)
}

// readLoop only detects disconnects; clients never send anything useful.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	n := len(s.clients)
	s.clientsMu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		slog.Debug("live: client disconnected", "clients", n)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}
