// internal/database/round.go
package database

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RoundResultRow is one player's line in a settled round.
type RoundResultRow struct {
	PlayerID uuid.UUID
	Score    int
	Winner   bool
}

// UpsertRoundSnapshot stores the serialized round state in rounds.state.
// Called from a write-behind goroutine off the action path; a nil pool
// (no Postgres configured) makes it a no-op, and failures are logged
// rather than surfaced since the in-memory state stays authoritative.
func UpsertRoundSnapshot(roundID, tableID uuid.UUID, number int, snapshot interface{}) {
	if DB == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("failed to marshal snapshot for round %v: %v", roundID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO rounds (id, table_id, round_number, state, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id)
			DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
		`
		_, e := tx.Exec(ctx, q, roundID, tableID, number, data)
		return e
	})
	if err != nil {
		log.Printf("failed to upsert snapshot for round %v: %v", roundID, err)
	}
}

// RecordRoundResults persists the per-player scores of a settled round.
// Same write-behind contract as UpsertRoundSnapshot.
func RecordRoundResults(roundID, tableID uuid.UUID, number int, rows []RoundResultRow) {
	if DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		markComplete := `
			INSERT INTO rounds (id, table_id, round_number, status, completed_at)
			VALUES ($1, $2, $3, 'complete', NOW())
			ON CONFLICT (id)
			DO UPDATE SET status = 'complete', completed_at = NOW()
		`
		if _, e := tx.Exec(ctx, markComplete, roundID, tableID, number); e != nil {
			return e
		}
		for _, row := range rows {
			q := `
				INSERT INTO round_results (round_id, player_id, score, did_win)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (round_id, player_id)
				DO UPDATE SET score = $3, did_win = $4
			`
			if _, e := tx.Exec(ctx, q, roundID, row.PlayerID, row.Score, row.Winner); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("failed to record results for round %v: %v", roundID, err)
	}
}
