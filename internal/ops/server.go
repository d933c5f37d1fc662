// Package ops exposes the engine's observation surface: a websocket stream
// of spawn events and an HTTP endpoint serving a spawner's valid positions
// for visualization overlays. GUI and command frontends sit on top of this.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/craftmods/cobblespawner/internal/model"
	"github.com/craftmods/cobblespawner/internal/spawn"
)

const (
	writeWait      = 5 * time.Second
	eventQueueSize = 256
)

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Sink implements spawn.EventSink: Publish never blocks the tick loop,
// events overflowing the queue are dropped. The ops Server drains it.
type Sink struct {
	queue chan spawn.Event
}

// NewSink creates an event sink with a bounded queue.
func NewSink() *Sink {
	return &Sink{queue: make(chan spawn.Event, eventQueueSize)}
}

// Publish queues an engine event for broadcast. Non-blocking.
func (s *Sink) Publish(ev spawn.Event) {
	select {
	case s.queue <- ev:
	default:
		slog.Debug("ops event queue full, dropping event", "type", ev.Type)
	}
}

// Server is the ops endpoint.
type Server struct {
	engine *spawn.Engine
	sink   *Sink

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	// limiter bounds broadcast fan-out so a burst of spawn cycles cannot
	// saturate slow subscribers.
	limiter *rate.Limiter
}

// NewServer creates an ops server draining the given sink.
func NewServer(engine *spawn.Engine, sink *Sink) *Server {
	return &Server{
		engine:  engine,
		sink:    sink,
		subs:    make(map[*subscriber]struct{}),
		limiter: rate.NewLimiter(rate.Limit(200), 400),
	}
}

// Run serves the ops endpoint until the context is canceled.
func (s *Server) Run(ctx context.Context, bind string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/positions", s.handlePositions)
	mux.HandleFunc("/spawners", s.handleSpawners)

	srv := &http.Server{Addr: bind, Handler: mux}

	go s.broadcastLoop(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("ops server listening", "bind", bind)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents upgrades to a websocket and streams engine events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("ops websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{conn: conn}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	// Reader goroutine: only to detect close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(sub)
				return
			}
		}
	}()
}

func (s *Server) drop(sub *subscriber) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
	sub.conn.Close()
}

// broadcastLoop fans queued events out to every subscriber.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.sink.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			s.broadcast(ev)
		}
	}
}

func (s *Server) broadcast(ev spawn.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshaling ops event", "error", err)
		return
	}

	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			slog.Debug("dropping slow ops subscriber", "error", err)
			s.drop(sub)
		}
	}
}

// handlePositions returns a spawner's cached valid spawn positions as JSON.
// Query: ?x=&y=&z=&dimension=
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	positions, ok := s.engine.ValidPositions(key)
	if !ok {
		http.Error(w, "spawner not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Spawner   model.SpawnerKey `json:"spawner"`
		Positions []model.Position `json:"positions"`
	}{key, positions})
}

// handleSpawners returns a snapshot of every registered spawner with its
// live population.
func (s *Server) handleSpawners(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Spawner    model.SpawnerSnapshot `json:"spawner"`
		Population int                   `json:"population"`
	}
	out := make([]entry, 0, s.engine.SpawnerCount())
	for _, spawner := range s.engine.Spawners() {
		out = append(out, entry{
			Spawner:    spawner.Snapshot(),
			Population: s.engine.Ledger().CountFor(spawner.Key()),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func keyFromQuery(r *http.Request) (model.SpawnerKey, error) {
	dimension := r.URL.Query().Get("dimension")
	if dimension == "" {
		return model.SpawnerKey{}, fmt.Errorf("missing dimension")
	}
	var coords [3]int32
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
		if err != nil {
			return model.SpawnerKey{}, fmt.Errorf("invalid %s coordinate", name)
		}
		coords[i] = int32(v)
	}
	return model.NewSpawnerKey(model.NewPosition(coords[0], coords[1], coords[2]), dimension), nil
}
