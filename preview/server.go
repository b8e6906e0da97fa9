package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bacmotion/logging"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

// request is the inbound message envelope. Fields beyond type are
// per-message.
type request struct {
	Type   string          `json:"type"`
	Frame  int             `json:"frame"`
	Kind   string          `json:"kind"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	ID     int             `json:"id"`
	Mode   string          `json:"mode"`
	Time   float64         `json:"time"`
	Config json.RawMessage `json:"config"`
}

// Server pushes snapshots to connected clients and applies their
// seek, drag, visibility and config messages to one shared session.
// Session mutations are serialized through a single mutex so every
// snapshot sees a consistent state.
type Server struct {
	upgrader websocket.Upgrader
	session  *Session

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex

	sessionMu sync.Mutex
}

// Run serves the preview endpoint on addr until ctx is done.
func Run(ctx context.Context, addr string, session *Session) error {
	srv := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		session: session,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWS)
	mux.HandleFunc("/healthz", srv.handleHealth)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logging.Info("Preview server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.mu.Lock()
	writeMu := &sync.Mutex{}
	s.clients[conn] = writeMu
	s.mu.Unlock()

	// Initial snapshot so the client has something to draw.
	s.sendSnapshot(conn, writeMu)

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := s.writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var req request
			if err := json.Unmarshal(payload, &req); err != nil {
				continue
			}
			s.handleRequest(conn, writeMu, req)
		}
	}()
}

// handleRequest applies one client message and answers with a fresh
// snapshot. A changed session is broadcast to every client so all
// views stay in sync.
func (s *Server) handleRequest(conn *websocket.Conn, writeMu *sync.Mutex, req request) {
	s.sessionMu.Lock()
	var err error
	broadcast := true
	switch req.Type {
	case "seek":
		s.session.Seek(req.Frame)
	case "drag":
		err = s.session.Drag(req.Kind, req.X, req.Y)
	case "config":
		err = s.session.ApplyConfig(req.Config)
	case "hide":
		err = s.session.Hide(req.ID, req.Mode, req.Time)
	case "unhide":
		s.session.Unhide(req.ID)
	case "snapshot_request":
		broadcast = false
	default:
		s.sessionMu.Unlock()
		return
	}
	if err != nil {
		s.sessionMu.Unlock()
		logging.Warning("Preview message %q rejected: %v", req.Type, err)
		_ = s.writeJSON(conn, writeMu, map[string]any{"type": "error", "message": err.Error()})
		return
	}
	snapshot, err := s.session.Snapshot()
	s.sessionMu.Unlock()
	if err != nil {
		logging.Error("Preview snapshot failed: %v", err)
		_ = s.writeJSON(conn, writeMu, map[string]any{"type": "error", "message": err.Error()})
		return
	}

	if broadcast {
		s.broadcast(snapshot)
		return
	}
	_ = s.writeJSON(conn, writeMu, snapshot)
}

func (s *Server) sendSnapshot(conn *websocket.Conn, writeMu *sync.Mutex) {
	s.sessionMu.Lock()
	snapshot, err := s.session.Snapshot()
	s.sessionMu.Unlock()
	if err != nil {
		logging.Error("Preview snapshot failed: %v", err)
		return
	}
	_ = s.writeJSON(conn, writeMu, snapshot)
}

func (s *Server) broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var stale []*websocket.Conn
	s.mu.Lock()
	for conn, writeMu := range s.clients {
		if err := s.writeMessage(conn, writeMu, websocket.TextMessage, data); err != nil {
			stale = append(stale, conn)
		}
	}
	s.mu.Unlock()
	for _, conn := range stale {
		s.removeClient(conn)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, payload any) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(payload)
}

func (s *Server) writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
