// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tablerummy/rummy-service/internal/database"
	"github.com/tablerummy/rummy-service/internal/deck"
	"github.com/tablerummy/rummy-service/internal/middleware"
	"github.com/tablerummy/rummy-service/internal/models"
	"github.com/tablerummy/rummy-service/internal/round"
	"github.com/tablerummy/rummy-service/internal/table"
)

// TableMessage is the incoming WebSocket message shape for table play.
// Cards travel as canonical tokens ("10H", "JOKER").
type TableMessage struct {
	Type string `json:"type"`

	// Card names the single card for action_discard.
	Card string `json:"card,omitempty"`

	// Cards carries the meld for action_lock_sequence.
	Cards []string `json:"cards,omitempty"`

	// Melds carries the grouped 13 cards for action_declare.
	Melds [][]string `json:"melds,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}

// TableWSHandler upgrades the HTTP connection to WebSocket for one table:
// /table/ws/{table_id}. It authenticates the caller (minting an ephemeral
// guest when needed), seats them if the table is still open or reattaches
// them to their existing seat, and then services their actions until the
// connection drops.
func TableWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.Split(strings.TrimPrefix(r.URL.Path, "/table/ws/"), "/")[0]
		if idStr == "" {
			http.Error(w, "missing table_id in path (/table/ws/{table_id})", http.StatusBadRequest)
			return
		}
		tableID, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "invalid table_id format", http.StatusBadRequest)
			return
		}

		t, ok := s.Tables.Get(tableID)
		if !ok {
			http.Error(w, "table not found", http.StatusNotFound)
			return
		}
		if t.Status() == table.StatusFinished {
			http.Error(w, "table has finished", http.StatusGone)
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.Warnf("authentication failed for table %s: %v", tableID, err)
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"table"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error for table %s: %v", tableID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal error")

		if c.Subprotocol() != "table" {
			c.Close(BadSubprotocolError, "client must use the 'table' subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		if !t.HasPlayer(userID) {
			player := playerForUser(r.Context(), userID)
			if err := t.AddPlayer(player); err != nil {
				logger.Warnf("user %s cannot join table %s: %v", userID, tableID, err)
				c.Close(websocket.StatusPolicyViolation, err.Error())
				return
			}
			logger.Infof("user %s seated at table %s (seat %d)", userID, tableID, player.Seat)
		}

		tc := s.connsFor(tableID)
		tc.set(userID, c)
		t.MarkConnected(userID, true)

		// Reattaching mid-round gets the obfuscated state pushed immediately.
		if r0 := t.CurrentRound(); r0 != nil {
			st := r0.SyncStateFor(userID)
			sendWsMessage(c, round.Event{Type: round.EventPrivateSyncState, State: &st}, logger)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readTableMessages(ctx, c, s, t, userID, logger)

		tc.remove(userID, c)
		t.MarkConnected(userID, false)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// playerForUser builds the seat model for a user, pulling the display name
// from the users table when a database is attached.
func playerForUser(ctx context.Context, userID uuid.UUID) *models.Player {
	name := "Guest-" + userID.String()[:8]
	if database.DB != nil {
		if u, err := database.GetUserByID(ctx, userID); err == nil && u.Username != "" {
			name = u.Username
		}
	}
	return &models.Player{ID: userID, DisplayName: name, Connected: true}
}

// readTableMessages services one client's actions until the connection
// closes. Every action gets a synchronous action_result reply; state fan-out
// happens through the table's broadcast callbacks.
func readTableMessages(ctx context.Context, c *websocket.Conn, s *Server, t *table.Table, userID uuid.UUID, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("websocket closed normally for user %s at table %s", userID, t.ID)
			} else if !errors.Is(err, context.Canceled) {
				logger.Warnf("websocket read error for user %s at table %s: %v", userID, t.ID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg TableMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendActionResult(c, logger, "", false, "invalid JSON")
			continue
		}

		if msg.Type == "ping" {
			sendWsMessage(c, map[string]string{"type": "pong"}, logger)
			continue
		}

		ok, reason := dispatchAction(c, s, t, userID, msg, logger)
		sendActionResult(c, logger, msg.Type, ok, reason)
	}
}

// dispatchAction routes one message to the table or its live round and
// reduces the outcome to the {ok, reason} action_result contract.
func dispatchAction(c *websocket.Conn, s *Server, t *table.Table, userID uuid.UUID, msg TableMessage, logger *logrus.Logger) (bool, string) {
	switch msg.Type {
	case "action_start_round":
		if userID != t.HostID {
			return false, "only the host can start a round"
		}
		return resultOf(t.StartRound(nil))

	case "action_next_round":
		if userID != t.HostID {
			return false, "only the host can start the next round"
		}
		return resultOf(t.PrepareNextRound(nil))

	case "action_sync":
		r0 := t.CurrentRound()
		if r0 == nil {
			return false, "no round in progress"
		}
		st := r0.SyncStateFor(userID)
		sendWsMessage(c, round.Event{Type: round.EventPrivateSyncState, State: &st}, logger)
		return true, ""
	}

	r0 := t.CurrentRound()
	if r0 == nil {
		return false, "no round in progress"
	}

	switch msg.Type {
	case "action_draw_stock":
		_, err := r0.DrawFromStock(userID)
		return resultOf(err)

	case "action_draw_discard":
		_, err := r0.DrawFromDiscard(userID)
		return resultOf(err)

	case "action_discard":
		card, err := deck.ParseToken(msg.Card)
		if err != nil {
			return false, fmt.Sprintf("bad card token %q", msg.Card)
		}
		return resultOf(r0.DiscardCard(userID, card))

	case "action_lock_sequence":
		cards, err := deck.ParseTokens(msg.Cards)
		if err != nil {
			return false, "bad card token in meld"
		}
		return resultOf(r0.LockSequence(userID, cards))

	case "action_declare":
		melds := make([][]deck.Card, 0, len(msg.Melds))
		for _, tokens := range msg.Melds {
			cards, err := deck.ParseTokens(tokens)
			if err != nil {
				return false, "bad card token in declaration"
			}
			melds = append(melds, cards)
		}
		_, err := r0.Declare(userID, melds)
		return resultOf(err)

	case "action_drop":
		return resultOf(r0.Drop(userID))

	default:
		return false, fmt.Sprintf("unknown action type: %s", msg.Type)
	}
}

// resultOf maps an engine error to the action_result pair.
func resultOf(err error) (bool, string) {
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// sendActionResult replies to one action with its outcome.
func sendActionResult(c *websocket.Conn, logger *logrus.Logger, action string, ok bool, reason string) {
	resp := map[string]interface{}{
		"type":   "action_result",
		"action": action,
		"ok":     ok,
	}
	if reason != "" {
		resp["reason"] = reason
	}
	sendWsMessage(c, resp, logger)
}

// sendWsMessage marshals and writes one message with a write timeout.
func sendWsMessage(c *websocket.Conn, message interface{}, logger *logrus.Logger) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("failed to marshal websocket message: %v", err)
		return
	}
	writeWithTimeout(c, data, logger, uuid.Nil)
}
