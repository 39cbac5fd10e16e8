// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tablerummy/rummy-service/internal/round"
	"github.com/tablerummy/rummy-service/internal/table"
)

// Server holds the table registry and the per-table connection registries
// the transport layer fans events out through.
type Server struct {
	Tables *table.Store
	Logger *logrus.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*tableConns
}

// NewServer builds a Server with an empty registry.
func NewServer(logger *logrus.Logger) *Server {
	return &Server{
		Tables: table.NewStore(),
		Logger: logger,
		conns:  make(map[uuid.UUID]*tableConns),
	}
}

// tableConns tracks the live WebSocket connections for one table. It has
// its own mutex so broadcast callbacks, which run while the round lock is
// held, never touch table or round state.
type tableConns struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*websocket.Conn
}

func (s *Server) connsFor(tableID uuid.UUID) *tableConns {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.conns[tableID]
	if !ok {
		tc = &tableConns{conns: make(map[uuid.UUID]*websocket.Conn)}
		s.conns[tableID] = tc
	}
	return tc
}

func (tc *tableConns) set(playerID uuid.UUID, c *websocket.Conn) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.conns[playerID] = c
}

// remove drops the registration only if it still points at this conn, so a
// fast reconnect is not clobbered by the old connection's cleanup.
func (tc *tableConns) remove(playerID uuid.UUID, c *websocket.Conn) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.conns[playerID] == c {
		delete(tc.conns, playerID)
	}
}

func (tc *tableConns) get(playerID uuid.UUID) *websocket.Conn {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.conns[playerID]
}

func (tc *tableConns) all() map[uuid.UUID]*websocket.Conn {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make(map[uuid.UUID]*websocket.Conn, len(tc.conns))
	for id, c := range tc.conns {
		out[id] = c
	}
	return out
}

// RegisterBroadcast wires a table's event callbacks to this server's
// connection registry. Events arrive with the round lock held, so the
// callbacks only snapshot the registry and hand the writes to a goroutine.
func (s *Server) RegisterBroadcast(t *table.Table) {
	tc := s.connsFor(t.ID)
	logger := s.Logger

	t.BroadcastFn = func(ev round.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("failed to marshal event %s for table %s: %v", ev.Type, t.ID, err)
			return
		}
		targets := tc.all()
		go func() {
			for pid, conn := range targets {
				writeWithTimeout(conn, data, logger, pid)
			}
		}()
	}
	t.BroadcastToPlayerFn = func(playerID uuid.UUID, ev round.Event) {
		conn := tc.get(playerID)
		if conn == nil {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("failed to marshal private event %s for player %s: %v", ev.Type, playerID, err)
			return
		}
		go writeWithTimeout(conn, data, logger, playerID)
	}
}

func writeWithTimeout(conn *websocket.Conn, data []byte, logger *logrus.Logger, playerID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		logger.Warnf("failed to write to player %s: %v", playerID, err)
	}
}
