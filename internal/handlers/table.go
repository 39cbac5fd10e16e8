// internal/handlers/table.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tablerummy/rummy-service/internal/auth"
	"github.com/tablerummy/rummy-service/internal/models"
	"github.com/tablerummy/rummy-service/internal/table"
)

// tableSummary is the public shape of a table for HTTP responses.
type tableSummary struct {
	ID      uuid.UUID          `json:"id"`
	HostID  uuid.UUID          `json:"hostId"`
	Status  table.Status       `json:"status"`
	Round   int                `json:"round"`
	Players []*models.Player   `json:"players"`
	Config  models.TableConfig `json:"config"`
}

func summarize(t *table.Table) tableSummary {
	return tableSummary{
		ID:      t.ID,
		HostID:  t.HostID,
		Status:  t.Status(),
		Round:   t.RoundNumber(),
		Players: t.Players(),
		Config:  t.Config,
	}
}

// authedUser resolves the auth_token cookie to a user ID.
func authedUser(r *http.Request) (uuid.UUID, bool) {
	cookie := r.Header.Get("Cookie")
	if !strings.Contains(cookie, "auth_token=") {
		return uuid.Nil, false
	}
	userIDStr, err := auth.AuthenticateJWT(extractCookieToken(cookie, "auth_token"))
	if err != nil {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// CreateTableHandler creates an in-memory table owned by the caller. The
// request body is an optional TableConfig; omitted fields take defaults.
func CreateTableHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUser(r)
		if !ok {
			http.Error(w, "missing or invalid auth_token", http.StatusUnauthorized)
			return
		}

		var cfg models.TableConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad table config payload", http.StatusBadRequest)
			return
		}

		t := table.NewTable(cfg, userID)
		s.RegisterBroadcast(t)
		s.Tables.Add(t)
		s.Logger.Infof("table %s created by %s", t.ID, userID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summarize(t))
	}
}

// ListTablesHandler returns every registered table.
func ListTablesHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authedUser(r); !ok {
			http.Error(w, "missing or invalid auth_token", http.StatusUnauthorized)
			return
		}

		summaries := []tableSummary{}
		for _, t := range s.Tables.List() {
			summaries = append(summaries, summarize(t))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

// GetTableHandler returns one table by ID: /table/{table_id}.
func GetTableHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authedUser(r); !ok {
			http.Error(w, "missing or invalid auth_token", http.StatusUnauthorized)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/table/")
		tableID, err := uuid.Parse(strings.TrimSuffix(idStr, "/"))
		if err != nil {
			http.Error(w, "invalid table_id", http.StatusBadRequest)
			return
		}
		t, ok := s.Tables.Get(tableID)
		if !ok {
			http.Error(w, "table not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summarize(t))
	}
}
