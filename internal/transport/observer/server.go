// Package observer streams a run to local spectators over websocket.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"councilofbots.ai/internal/observerproto"
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/scoring"
)

const (
	sessionBuffer = 256

	defaultPongWait = 60 * time.Second
)

type Server struct {
	log *log.Logger

	// A spectator that answers no ping within pongWait is dropped. Pings go out every
	// pongWait*9/10.
	pongWait time.Duration

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu       sync.Mutex
	info     observerproto.BootstrapResponse
	backlog  [][]byte
	rounds   []int
	sessions map[string]chan []byte
}

// NewServer serves the run described by info. Members, seed and run id are fixed for the
// server's lifetime; the round counter follows RecordRound.
func NewServer(info observerproto.BootstrapResponse, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	info.ProtocolVersion = observerproto.Version
	return &Server{
		log:      logger,
		pongWait: defaultPongWait,
		info:     info,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see handlers
		},
		sessions: map[string]chan []byte{},
	}
}

// Handler routes /v1/bootstrap and /v1/observe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/observe", s.WSHandler())
	return mux
}

// RecordRound broadcasts rec to every spectator. Slow spectators lose messages rather than
// stalling the run.
func (s *Server) RecordRound(rec *council.RoundRecord) error {
	b, err := json.Marshal(observerproto.RoundMsg{
		Type:            observerproto.TypeRound,
		ProtocolVersion: observerproto.Version,
		RunID:           s.info.RunID,
		Record:          rec,
	})
	if err != nil {
		return fmt.Errorf("observer: encode round: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Round = rec.Round
	s.backlog = append(s.backlog, b)
	s.rounds = append(s.rounds, rec.Round)
	s.broadcastLocked(b)
	return nil
}

var _ council.Sink = (*Server)(nil)

// Finish broadcasts the final report.
func (s *Server) Finish(rep scoring.Report) {
	b, err := json.Marshal(observerproto.ReportMsg{
		Type:            observerproto.TypeReport,
		ProtocolVersion: observerproto.Version,
		RunID:           s.info.RunID,
		Report:          rep,
	})
	if err != nil {
		s.log.Printf("observer: encode report: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Finished = true
	s.backlog = append(s.backlog, b)
	s.rounds = append(s.rounds, s.info.Round+1)
	s.broadcastLocked(b)
}

func (s *Server) broadcastLocked(b []byte) {
	for _, out := range s.sessions {
		select {
		case out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Sessions is the number of connected spectators.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dropped counts messages not delivered to slow spectators.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		resp := s.info
		s.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := s.join(sid, sub.FromRound)
		defer s.leave(sid)
		s.log.Printf("observer %s joined from %s", sid, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		ping := time.NewTicker(s.pongWait * 9 / 10)
		defer ping.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						writeErr <- err
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: the feed is read-only. Client messages and pongs keep the
		// connection alive.
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.pongWait))
		})
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Printf("observer %s left", sid)
	}
}

// join registers a session and queues the backlog from fromRound under the same lock as
// broadcasts, so every message reaches the session exactly once.
func (s *Server) join(sid string, fromRound int) chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(chan []byte, sessionBuffer+len(s.backlog))
	for i, b := range s.backlog {
		if s.rounds[i] >= fromRound {
			out <- b
		}
	}
	s.sessions[sid] = out
	return out
}

func (s *Server) leave(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
