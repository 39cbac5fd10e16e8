// cmd/ledger is an asynchronous worker that pops round action records from
// the Redis ledger queue and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/tablerummy/rummy-service/internal/cache"
	"github.com/tablerummy/rummy-service/internal/database"
)

// LedgerService encapsulates the Redis + DB logic for capturing round
// actions and marking rounds abandoned after prolonged inactivity.
type LedgerService struct {
	redisClient  *redis.Client
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration
	lastActivity sync.Map // map[uuid.UUID]time.Time per round

	batchMu  sync.Mutex
	batch    []cache.RoundActionRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewLedgerService constructs a LedgerService from environment variables.
func NewLedgerService() *LedgerService {
	batchSize := getEnvInt("LEDGER_BATCH_SIZE", 20)
	flushMs := getEnvInt("LEDGER_FLUSH_MS", 500)
	inactivitySec := getEnvInt("ROUND_INACTIVITY_TIMEOUT_SEC", 600)

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &LedgerService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.RoundActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects the database and starts the consume and inactivity loops.
func (ls *LedgerService) Run() {
	database.ConnectDB()

	go ls.readRedisLoop()
	go ls.inactivityLoop()

	log.Println("rummy-ledger service started.")
	<-ls.ctx.Done()
	log.Println("rummy-ledger shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the queue.
func (ls *LedgerService) readRedisLoop() {
	ticker := time.NewTicker(ls.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("ACTION_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-ls.ctx.Done():
			return

		case <-ticker.C:
			ls.flushBatchToDB()

		default:
			// BLPop with a short timeout so context cancellation is noticed.
			res, err := ls.redisClient.BLPop(ls.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.RoundActionRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid action record: %v\n", err)
				continue
			}

			ls.lastActivity.Store(record.RoundID, time.Now())
			ls.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes once the threshold is reached.
func (ls *LedgerService) appendToBatch(record cache.RoundActionRecord) {
	ls.batchMu.Lock()
	defer ls.batchMu.Unlock()

	ls.batch = append(ls.batch, record)
	if len(ls.batch) >= ls.batchSize {
		ls.flushLocked()
	}
}

// flushBatchToDB flushes the current batch in a single transaction.
func (ls *LedgerService) flushBatchToDB() {
	ls.batchMu.Lock()
	defer ls.batchMu.Unlock()
	ls.flushLocked()
}

func (ls *LedgerService) flushLocked() {
	if len(ls.batch) == 0 {
		return
	}
	batchCopy := make([]cache.RoundActionRecord, len(ls.batch))
	copy(batchCopy, ls.batch)
	ls.batch = ls.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertRoundActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoundActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d actions to DB.\n", len(batchCopy))
	}
}

// inactivityLoop marks rounds abandoned once no action has arrived for the
// configured window.
func (ls *LedgerService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ls.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			ls.lastActivity.Range(func(key, val interface{}) bool {
				roundID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > ls.inactivity {
					ls.markRoundAbandoned(roundID)
					ls.lastActivity.Delete(roundID)
				}
				return true
			})
		}
	}
}

// markRoundAbandoned flips a stalled round's status if it never settled.
func (ls *LedgerService) markRoundAbandoned(roundID uuid.UUID) {
	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE rounds
			SET status = 'abandoned', completed_at = NOW()
			WHERE id = $1 AND status NOT IN ('complete', 'abandoned')
		`
		_, e := tx.Exec(ctx, q, roundID)
		return e
	})
	if err != nil {
		log.Printf("failed to mark round %v abandoned: %v", roundID, err)
	} else {
		log.Printf("Marked round %v as 'abandoned' due to inactivity.", roundID)
	}
}

// insertRoundActionTx appends one action row, upserting the parent round
// row so replay tooling always has an anchor to join against.
func insertRoundActionTx(ctx context.Context, tx pgx.Tx, rec cache.RoundActionRecord) error {
	upsertRoundQ := `
		INSERT INTO rounds (id, table_id, round_number, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertRoundQ, rec.RoundID, rec.TableID); err != nil {
		return err
	}

	actionInsertQ := `
		INSERT INTO round_actions (
			round_id, action_index, player_id, action_type, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	jsonPayload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.RoundID, rec.Index, rec.PlayerID, rec.ActionType, jsonPayload, rec.Timestamp,
	)
	return err
}

// Stop gracefully stops the ledger service.
func (ls *LedgerService) Stop() {
	ls.cancelFn()
}

func main() {
	ls := NewLedgerService()
	go ls.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	ls.Stop()
	log.Println("Ledger shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt parses an environment variable as integer, else a default.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
